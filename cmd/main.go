package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"lessonforge/internal/cli/scheme/colours"
	"lessonforge/internal/config"
	"lessonforge/internal/lesson/pipeline"
	"lessonforge/internal/lesson/script"
	"lessonforge/internal/lesson/synth"
)

func main() {
	config.SetDefaults()

	ctx, cancel := context.WithCancel(context.Background())

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
		fmt.Println("\n" + colours.Warning.Sprint("Interrupted, stopping..."))
	}()

	var verbose bool
	rootCmd := &cobra.Command{
		Use:   "lessonforge",
		Short: "Turn conversation scripts into lesson audio and subtitles",
		Long: `lessonforge synthesizes conversation scripts into one continuous
lesson recording with millisecond-accurate SRT subtitles, reconciling its
timing estimates against an ASR pass to correct drift.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	var (
		outputDir string
		engine    string
		format    string
		noAlign   bool
	)

	generateCmd := &cobra.Command{
		Use:   "generate [script.json]",
		Short: "Generate one lesson from a script file",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			p := buildPipeline(engine, format, noAlign)
			out, err := p.GenerateFromFile(ctx, args[0], outputDir)
			if err != nil {
				colours.Error.Printf("Generation failed: %v\n", err)
				os.Exit(1)
			}
			printOutput(out)
		},
	}
	generateCmd.Flags().StringVarP(&outputDir, "output", "o", "output", "Output directory")
	generateCmd.Flags().StringVarP(&engine, "engine", "e", "", "Synthesis engine (auto|google|espeak|mock)")
	generateCmd.Flags().StringVar(&format, "format", "", "Audio format (mp3|wav)")
	generateCmd.Flags().BoolVar(&noAlign, "no-align", false, "Skip ASR alignment, keep provisional timings")

	batchCmd := &cobra.Command{
		Use:   "batch [dir]",
		Short: "Generate every *.json script in a directory",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			scripts, err := filepath.Glob(filepath.Join(args[0], "*.json"))
			if err != nil || len(scripts) == 0 {
				colours.Error.Printf("No scripts found in %s\n", args[0])
				os.Exit(1)
			}
			sort.Strings(scripts)

			p := buildPipeline(engine, format, noAlign)
			cfg := config.Load()
			results := p.GenerateBatch(ctx, scripts, outputDir, cfg.Batch.Workers)

			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
					colours.Error.Printf("  %s: %v\n", filepath.Base(r.ScriptPath), r.Err)
				} else {
					colours.Success.Printf("  %s -> %s\n", filepath.Base(r.ScriptPath), r.Output.AudioFile)
				}
			}
			fmt.Println()
			colours.Info.Printf("%d lessons generated, %d failed\n", len(results)-failed, failed)
			if failed > 0 {
				os.Exit(1)
			}
		},
	}
	batchCmd.Flags().StringVarP(&outputDir, "output", "o", "output", "Output directory")
	batchCmd.Flags().StringVarP(&engine, "engine", "e", "", "Synthesis engine (auto|google|espeak|mock)")
	batchCmd.Flags().StringVar(&format, "format", "", "Audio format (mp3|wav)")
	batchCmd.Flags().BoolVar(&noAlign, "no-align", false, "Skip ASR alignment, keep provisional timings")

	validateCmd := &cobra.Command{
		Use:   "validate [script.json]",
		Short: "Validate a script file without generating audio",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			data, err := os.ReadFile(args[0])
			if err != nil {
				colours.Error.Printf("Cannot read script: %v\n", err)
				os.Exit(1)
			}
			s, err := script.Parse(data)
			if err != nil {
				colours.Error.Printf("Parse failed: %v\n", err)
				os.Exit(1)
			}
			if errs := s.Validate(); len(errs) > 0 {
				colours.Error.Printf("Script has %d problem(s):\n", len(errs))
				for _, e := range errs {
					fmt.Println("  - " + e)
				}
				os.Exit(1)
			}
			colours.Success.Printf("Script OK: %s with %d lines\n", s.LessonID, len(s.Lines))
		},
	}

	voicesCmd := &cobra.Command{
		Use:   "voices",
		Short: "List voices available from the synthesis engine",
		Run: func(cmd *cobra.Command, args []string) {
			eng := buildEngine(engine)
			voices, err := eng.Voices(ctx)
			if err != nil {
				colours.Error.Printf("Cannot list voices: %v\n", err)
				os.Exit(1)
			}
			colours.Title.Printf("Voices (%s engine):\n", eng.Name())
			for _, v := range voices {
				fmt.Println("  " + v)
			}
		},
	}
	voicesCmd.Flags().StringVarP(&engine, "engine", "e", "", "Synthesis engine (auto|google|espeak|mock)")

	playCmd := &cobra.Command{
		Use:   "play [audio-file]",
		Short: "Play a generated lesson recording",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := playFile(ctx, args[0]); err != nil {
				colours.Error.Printf("Playback failed: %v\n", err)
				os.Exit(1)
			}
		},
	}

	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the synthesis cache",
	}
	cacheCmd.AddCommand(
		&cobra.Command{
			Use:   "stats",
			Short: "Show synthesis cache statistics",
			Run: func(cmd *cobra.Command, args []string) {
				cached := cachedEngine(engine)
				stats, err := cached.Stats()
				if err != nil {
					colours.Error.Printf("Cannot read cache: %v\n", err)
					os.Exit(1)
				}
				colours.Info.Printf("Cache directory: %s\n", stats.Directory)
				fmt.Printf("  files: %d\n  size:  %.2f MB\n", stats.CachedFiles, stats.TotalSizeMB)
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove all cached synthesis audio",
			Run: func(cmd *cobra.Command, args []string) {
				cached := cachedEngine(engine)
				if err := cached.Clear(); err != nil {
					colours.Error.Printf("Cannot clear cache: %v\n", err)
					os.Exit(1)
				}
				colours.Success.Println("Cache cleared")
			},
		},
	)

	rootCmd.AddCommand(generateCmd, batchCmd, validateCmd, voicesCmd, playCmd, cacheCmd)

	if err := rootCmd.Execute(); err != nil {
		colours.Error.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

// buildPipeline resolves configuration with CLI overrides applied.
func buildPipeline(engine, format string, noAlign bool) *pipeline.Pipeline {
	cfg := config.Load()
	if engine != "" {
		cfg.TTS.Engine = engine
	}
	if format != "" {
		cfg.Audio.Format = format
	}
	if noAlign {
		cfg.Alignment.Enabled = false
	}

	p, err := pipeline.New(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("failed to create pipeline")
	}
	return p
}

func buildEngine(engine string) synth.Engine {
	cfg := config.Load()
	if engine != "" {
		cfg.TTS.Engine = engine
	}
	eng, err := synth.NewEngine(cfg.TTS.Engine, cfg.TTS.CachePath, cfg.Audio.SampleRate)
	if err != nil {
		logrus.WithError(err).Fatal("failed to create synthesis engine")
	}
	return eng
}

func cachedEngine(engine string) *synth.CachedEngine {
	cfg := config.Load()
	if cfg.TTS.CachePath == "" {
		colours.Warning.Println("No cache configured (set tts.cache_path)")
		os.Exit(1)
	}
	eng := buildEngine(engine)
	cached, ok := eng.(*synth.CachedEngine)
	if !ok {
		colours.Warning.Println("Synthesis cache is not enabled for this engine")
		os.Exit(1)
	}
	return cached
}

func printOutput(out *pipeline.Output) {
	colours.Title.Printf("Lesson %s generated\n", out.LessonID)
	fmt.Printf("  audio:    %s\n", out.AudioFile)
	fmt.Printf("  subtitle: %s\n", out.SRTFile)
	fmt.Printf("  duration: %dms, %d segments\n", out.DurationMs, len(out.Segments))
	fmt.Printf("  quality:  %.2f\n", out.Metadata.QualityScore)
	if len(out.Metadata.FailedLineIDs) > 0 {
		colours.Warning.Printf("  gaps for failed lines: %v\n", out.Metadata.FailedLineIDs)
	}
}

func playFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	if strings.HasSuffix(strings.ToLower(path), ".mp3") {
		streamer, format, err = mp3.Decode(f)
	} else {
		streamer, format, err = wav.Decode(f)
	}
	if err != nil {
		f.Close()
		return err
	}
	defer streamer.Close()

	if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
		return err
	}

	done := make(chan bool)
	speaker.Play(beep.Seq(streamer, beep.Callback(func() {
		done <- true
	})))

	select {
	case <-done:
	case <-ctx.Done():
		speaker.Clear()
	}
	return nil
}

// Configuration management with Viper
func init() {
	viper.SetConfigName("lessonforge")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.lessonforge")
	viper.AddConfigPath(".")

	viper.ReadInConfig()
}
