package config

import "github.com/spf13/viper"

// Config is the resolved configuration handed to the pipeline. It is built
// once from viper at startup; nothing below the CLI reads viper after that,
// so concurrent lesson generations cannot interfere through shared settings.
type Config struct {
	TTS       TTSConfig
	Voices    VoicesConfig
	Audio     AudioConfig
	Synthesis SynthesisConfig
	Alignment AlignmentConfig
	Batch     BatchConfig
}

type TTSConfig struct {
	Engine    string // auto, google, espeak, mock
	CachePath string
}

type VoicesConfig struct {
	Directory string
	Map       map[string]string // speaker id -> engine voice name
}

type AudioConfig struct {
	SampleRate int
	Format     string // mp3 or wav
	MP3Bitrate int
	TargetDbFS float64
}

type SynthesisConfig struct {
	MaxAttempts      int
	Temperature      float64
	InitialSilenceMs int
	DefaultPauseMs   int
	Workers          int
}

type AlignmentConfig struct {
	Enabled          bool
	Command          string
	DriftThresholdMs int
	WERThreshold     float64
}

type BatchConfig struct {
	Workers int
}

func SetDefaults() {
	viper.SetDefault("tts.engine", "auto")
	viper.SetDefault("tts.cache_path", "")
	viper.SetDefault("voices.directory", "./voices")
	viper.SetDefault("voices.map", map[string]string{})
	viper.SetDefault("audio.sample_rate", 24000)
	viper.SetDefault("audio.format", "mp3")
	viper.SetDefault("audio.mp3_bitrate", 192)
	viper.SetDefault("audio.target_dbfs", -16.0)
	viper.SetDefault("synthesis.max_attempts", 3)
	viper.SetDefault("synthesis.temperature", 0.7)
	viper.SetDefault("synthesis.initial_silence_ms", 300)
	viper.SetDefault("synthesis.default_pause_ms", 400)
	viper.SetDefault("synthesis.workers", 1)
	viper.SetDefault("alignment.enabled", true)
	viper.SetDefault("alignment.command", "whisper-words")
	viper.SetDefault("alignment.drift_threshold_ms", 200)
	viper.SetDefault("alignment.wer_threshold", 0.10)
	viper.SetDefault("batch.workers", 2)
}

// Load resolves the current viper state into a Config value.
func Load() Config {
	return Config{
		TTS: TTSConfig{
			Engine:    viper.GetString("tts.engine"),
			CachePath: viper.GetString("tts.cache_path"),
		},
		Voices: VoicesConfig{
			Directory: viper.GetString("voices.directory"),
			Map:       viper.GetStringMapString("voices.map"),
		},
		Audio: AudioConfig{
			SampleRate: viper.GetInt("audio.sample_rate"),
			Format:     viper.GetString("audio.format"),
			MP3Bitrate: viper.GetInt("audio.mp3_bitrate"),
			TargetDbFS: viper.GetFloat64("audio.target_dbfs"),
		},
		Synthesis: SynthesisConfig{
			MaxAttempts:      viper.GetInt("synthesis.max_attempts"),
			Temperature:      viper.GetFloat64("synthesis.temperature"),
			InitialSilenceMs: viper.GetInt("synthesis.initial_silence_ms"),
			DefaultPauseMs:   viper.GetInt("synthesis.default_pause_ms"),
			Workers:          viper.GetInt("synthesis.workers"),
		},
		Alignment: AlignmentConfig{
			Enabled:          viper.GetBool("alignment.enabled"),
			Command:          viper.GetString("alignment.command"),
			DriftThresholdMs: viper.GetInt("alignment.drift_threshold_ms"),
			WERThreshold:     viper.GetFloat64("alignment.wer_threshold"),
		},
		Batch: BatchConfig{
			Workers: viper.GetInt("batch.workers"),
		},
	}
}
