package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"jitlens/internal/analysis"
	"jitlens/internal/annotate"
	"jitlens/internal/classfile"
	"jitlens/internal/config"
	"jitlens/internal/crawler"
	"jitlens/internal/inspector"
	"jitlens/internal/jitlog"
	"jitlens/internal/lang"
	"jitlens/internal/report"
	"jitlens/internal/storage"
)

var (
	rootCmd = &cobra.Command{
		Use:   "jitlens",
		Short: "Inspect HotSpot JIT compilation decisions per bytecode instruction",
	}

	configPath  string
	logPath     string
	outputRoots []string
	dbPath      string
	verbose     bool

	logger = logrus.New()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "jitlens.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVarP(&logPath, "log", "l", "", "Path to the HotSpot LogCompilation file")
	rootCmd.PersistentFlags().StringArrayVarP(&outputRoots, "output-root", "o", nil, "Compiled-output root directory (repeatable)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	reportCmd.Flags().StringVarP(&dbPath, "db", "d", "", "SQLite database to store the report in (omit for stdout markdown)")

	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(summaryCmd)
}

type settings struct {
	logFile  string
	srcRoots []string
	outRoots []string
	db       string
}

// loadSettings merges the optional config file with command-line flags;
// flags win.
func loadSettings() settings {
	var s settings
	cfg, err := config.LoadConfig(configPath)
	if err == nil {
		s.logFile = cfg.Log.Path
		s.srcRoots = cfg.Project.SourceRoots
		s.outRoots = cfg.Project.OutputRoots
		s.db = cfg.Report.DBPath
	}
	if logPath != "" {
		s.logFile = logPath
	}
	if len(outputRoots) > 0 {
		s.outRoots = outputRoots
	}
	if dbPath != "" {
		s.db = dbPath
	}
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return s
}

func newInspector(outRoots []string) (*inspector.Inspector, *lang.Registry) {
	registry := lang.NewRegistry()
	return inspector.New(registry, outRoots, logger), registry
}

// loadAllBytecode crawls the source roots and loads the annotation index
// for every file, a few files at a time. Per-file loads for different files
// are independent; the inspector serializes its own state internally.
func loadAllBytecode(in *inspector.Inspector, registry *lang.Registry, srcRoots []string) ([]*lang.SourceFile, error) {
	c := crawler.NewCrawler(registry)
	var files []*lang.SourceFile
	for _, root := range srcRoots {
		err := c.ScanRoot(root, func(f *lang.SourceFile) {
			files = append(files, f)
		})
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", root, err)
		}
	}

	g := new(errgroup.Group)
	g.SetLimit(4)
	for _, f := range files {
		f := f
		g.Go(func() error {
			return in.LoadBytecode(f)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

func collectRows(in *inspector.Inspector, files []*lang.SourceFile) []storage.AnnotationRow {
	var rows []storage.AnnotationRow
	for _, f := range files {
		in.ProcessAnnotations(f, func(method *lang.SourceMethod, member *jitlog.MetaMember, _ *classfile.MethodBytecode, ins classfile.Instruction, annotations []annotate.LineAnnotation) {
			for _, a := range annotations {
				rows = append(rows, storage.AnnotationRow{
					File:       f.Path,
					Class:      member.Class.Name,
					Method:     member.Name,
					Descriptor: member.Descriptor,
					BCI:        ins.Offset,
					Mnemonic:   ins.Mnemonic,
					Kind:       string(a.Kind),
					Text:       a.Text,
				})
			}
		})
	}
	return rows
}

func runPipeline(args []string) (*inspector.Inspector, []*lang.SourceFile, settings, error) {
	s := loadSettings()
	srcRoots := s.srcRoots
	if len(args) > 0 {
		srcRoots = args
	}
	if s.logFile == "" {
		return nil, nil, s, fmt.Errorf("no compilation log given (use --log or the config file)")
	}
	if len(srcRoots) == 0 {
		return nil, nil, s, fmt.Errorf("no source roots given")
	}

	in, registry := newInspector(s.outRoots)
	if err := in.LoadLog(s.logFile); err != nil {
		return nil, nil, s, err
	}
	files, err := loadAllBytecode(in, registry, srcRoots)
	if err != nil {
		return nil, nil, s, err
	}
	return in, files, s, nil
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [source-root...]",
	Short: "Print every annotated bytecode instruction",
	RunE: func(cmd *cobra.Command, args []string) error {
		in, files, _, err := runPipeline(args)
		if err != nil {
			return err
		}
		for _, r := range collectRows(in, files) {
			fmt.Printf("%s  %s.%s%s @%d %s: %s\n", r.File, r.Class, r.Method, r.Descriptor, r.BCI, r.Mnemonic, r.Text)
		}
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report [source-root...]",
	Short: "Write an annotation report to SQLite or markdown",
	RunE: func(cmd *cobra.Command, args []string) error {
		in, files, s, err := runPipeline(args)
		if err != nil {
			return err
		}
		rows := collectRows(in, files)

		if s.db == "" {
			return report.NewMarkdownWriter(os.Stdout).Write("JIT annotation report", rows)
		}

		store, err := storage.NewSQLiteStore(s.db)
		if err != nil {
			return fmt.Errorf("opening report store: %w", err)
		}
		defer store.Close()
		if err := store.SaveReport(context.Background(), rows); err != nil {
			return fmt.Errorf("saving report: %w", err)
		}
		logger.WithFields(logrus.Fields{"rows": len(rows), "db": s.db}).Info("report saved")
		return nil
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print model-wide compilation statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := loadSettings()
		if s.logFile == "" {
			return fmt.Errorf("no compilation log given (use --log or the config file)")
		}

		in, _ := newInspector(s.outRoots)
		if err := in.LoadLog(s.logFile); err != nil {
			return err
		}

		sum := analysis.Summarize(in.Model(), 10)
		fmt.Printf("classes:        %d\n", sum.Classes)
		fmt.Printf("members:        %d\n", sum.Members)
		fmt.Printf("compilations:   %d (%d OSR, %d failed)\n", sum.Compilations, sum.OSR, sum.Failed)
		fmt.Printf("inlined:        %d\n", sum.Inlined)
		fmt.Printf("inline misses:  %d\n", sum.InlineFailed)
		fmt.Printf("uncommon traps: %d\n", sum.Traps)
		fmt.Printf("eliminations:   %d\n", sum.Eliminations)
		fmt.Printf("intrinsics:     %d\n", sum.Intrinsics)
		if len(sum.TopInlineFailReasons) > 0 {
			fmt.Println("top inline-failure reasons:")
			for _, rc := range sum.TopInlineFailReasons {
				fmt.Printf("  %5d  %s\n", rc.Count, rc.Reason)
			}
		}
		return nil
	},
}
