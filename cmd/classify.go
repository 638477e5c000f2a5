package main

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/climate-cli/internal/engine"
	"github.com/sells-group/climate-cli/internal/feature"
	"github.com/sells-group/climate-cli/internal/store"
)

var (
	classifyRulesFile string
	classifyRulesName string
	classifyOutFile   string
	classifyNoRecord  bool
)

var classifyCmd = &cobra.Command{
	Use:   "classify <features...>",
	Short: "Classify grid-cell features against a rule set",
	Long:  "Loads features from GeoJSON, CSV, shapefile, or XLSX inputs, classifies each cell, and writes classified GeoJSON plus a summary.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		eng, ruleSetID, err := loadEngine(ctx, classifyRulesFile, classifyRulesName)
		if err != nil {
			return err
		}

		features, err := loadFeatureFiles(ctx, args, cfg.Classify.MaxConcurrentFiles)
		if err != nil {
			return err
		}

		// Chunked so a huge grid classifies in bounded batches; the engine
		// itself runs each chunk to completion synchronously.
		res := classifyChunked(eng, features, cfg.Classify.ChunkSize)

		if classifyOutFile != "" {
			all := append(append([]*feature.Feature{}, res.Classified...), res.Unclassified...)
			if err := feature.WriteGeoJSONFile(classifyOutFile, all); err != nil {
				return err
			}
		}

		if !classifyNoRecord {
			recordRun(ctx, res, ruleSetID, args[0])
		}

		printSummary(cmd, res)
		return nil
	},
}

// loadEngine builds the engine from a rules file, a saved rule set, or the
// built-in example preset, in that order of preference. It returns the saved
// rule set id when one was used.
func loadEngine(ctx context.Context, rulesFile, rulesName string) (*engine.Engine, string, error) {
	if rulesFile != "" {
		data, err := os.ReadFile(rulesFile)
		if err != nil {
			return nil, "", eris.Wrapf(err, "read rules file %s", rulesFile)
		}
		doc, err := parseRuleDocument(rulesFile, data)
		if err != nil {
			return nil, "", err
		}
		eng, err := engine.FromDocument(doc)
		return eng, "", err
	}

	if rulesName != "" {
		st, err := openStore(ctx)
		if err != nil {
			return nil, "", err
		}
		defer st.Close()

		rs, err := st.GetRuleSetByName(ctx, rulesName)
		if err != nil {
			return nil, "", err
		}
		if rs == nil {
			return nil, "", eris.Errorf("rule set %q not found", rulesName)
		}
		eng, err := engine.ImportJSON(string(rs.Document))
		return eng, rs.ID, err
	}

	zap.L().Info("no rule set given, using example preset")
	return engine.New(engine.ExamplePreset()), "", nil
}

// loadFeatureFiles loads every input concurrently, preserving input order.
func loadFeatureFiles(ctx context.Context, paths []string, maxConcurrent int) ([]*feature.Feature, error) {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}

	perFile := make([][]*feature.Feature, len(paths))
	var mu sync.Mutex

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)
	for i, path := range paths {
		g.Go(func() error {
			feats, err := feature.ReadFile(path)
			if err != nil {
				return err
			}
			mu.Lock()
			perFile[i] = feats
			mu.Unlock()
			zap.L().Debug("loaded features", zap.String("file", path), zap.Int("count", len(feats)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []*feature.Feature
	for _, feats := range perFile {
		all = append(all, feats...)
	}
	return all, nil
}

// classifyChunked runs ClassifyAll per chunk and merges the results.
func classifyChunked(eng *engine.Engine, features []*feature.Feature, chunkSize int) *engine.Result {
	if chunkSize <= 0 || chunkSize >= len(features) {
		return eng.ClassifyAll(features)
	}

	merged := &engine.Result{Stats: engine.Stats{ByCategory: make(map[string]*engine.CategoryCount)}}
	for start := 0; start < len(features); start += chunkSize {
		end := min(start+chunkSize, len(features))
		res := eng.ClassifyAll(features[start:end])
		merged.Classified = append(merged.Classified, res.Classified...)
		merged.Unclassified = append(merged.Unclassified, res.Unclassified...)
		merged.Stats.Total += res.Stats.Total
		merged.Stats.Classified += res.Stats.Classified
		merged.Stats.Unclassified += res.Stats.Unclassified
		for id, c := range res.Stats.ByCategory {
			if cur, ok := merged.Stats.ByCategory[id]; ok {
				cur.Count += c.Count
			} else {
				merged.Stats.ByCategory[id] = &engine.CategoryCount{Name: c.Name, Color: c.Color, Count: c.Count}
			}
		}
	}
	return merged
}

// recordRun saves the run summary; failures are logged, never fatal.
func recordRun(ctx context.Context, res *engine.Result, ruleSetID, source string) {
	st, err := openStore(ctx)
	if err != nil {
		zap.L().Warn("run not recorded", zap.Error(err))
		return
	}
	defer st.Close()

	byCategory, err := json.Marshal(res.Stats.ByCategory)
	if err != nil {
		zap.L().Warn("run not recorded", zap.Error(err))
		return
	}
	if _, err := st.RecordRun(ctx, store.Run{
		RuleSetID:    ruleSetID,
		Source:       source,
		Total:        res.Stats.Total,
		Classified:   res.Stats.Classified,
		Unclassified: res.Stats.Unclassified,
		ByCategory:   byCategory,
	}); err != nil {
		zap.L().Warn("run not recorded", zap.Error(err))
	}
}

func printSummary(cmd *cobra.Command, res *engine.Result) {
	p := message.NewPrinter(language.English)
	out := cmd.OutOrStdout()

	p.Fprintf(out, "classified %d of %d features (%d unclassified)\n",
		res.Stats.Classified, res.Stats.Total, res.Stats.Unclassified)

	ids := make([]string, 0, len(res.Stats.ByCategory))
	for id := range res.Stats.ByCategory {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		c := res.Stats.ByCategory[id]
		p.Fprintf(out, "  %-24s %d\n", c.Name, c.Count)
	}
}

func openStore(ctx context.Context) (store.Store, error) {
	st, err := openStoreFn(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// openStoreFn is swapped by tests.
var openStoreFn = func(ctx context.Context) (store.Store, error) {
	return configOpenStore(ctx)
}

func init() {
	classifyCmd.Flags().StringVarP(&classifyRulesFile, "rules", "r", "", "rule set file (JSON or YAML)")
	classifyCmd.Flags().StringVar(&classifyRulesName, "rules-name", "", "saved rule set name")
	classifyCmd.Flags().StringVarP(&classifyOutFile, "out", "o", "", "write classified features to GeoJSON file")
	classifyCmd.Flags().BoolVar(&classifyNoRecord, "no-record", false, "skip recording the run in the store")
	rootCmd.AddCommand(classifyCmd)
}
