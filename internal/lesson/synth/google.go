package synth

import (
	"context"
	"fmt"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"github.com/sirupsen/logrus"
	texttospeechpb "google.golang.org/genproto/googleapis/cloud/texttospeech/v1"
)

const defaultGoogleVoice = "en-US-Neural2-C"

// GoogleEngine synthesizes through the Google Cloud Text-to-Speech API,
// requesting LINEAR16 at the pipeline sample rate so clips stitch without
// resampling.
type GoogleEngine struct {
	client *texttospeech.Client
	ctx    context.Context
}

func newGoogleEngine() (*GoogleEngine, error) {
	ctx := context.Background()
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create TTS client: %w", err)
	}
	return &GoogleEngine{client: client, ctx: ctx}, nil
}

func (g *GoogleEngine) Name() string { return EngineTypeGoogle.String() }

func (g *GoogleEngine) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	voiceName := req.Voice.EngineVoice
	if voiceName == "" {
		voiceName = defaultGoogleVoice
	}

	audioCfg := &texttospeechpb.AudioConfig{
		AudioEncoding:   texttospeechpb.AudioEncoding_LINEAR16,
		SampleRateHertz: int32(req.SampleRate),
	}

	// Chirp voices often don't support speakingRate/pitch, skip them
	if !strings.Contains(strings.ToLower(voiceName), "chirp") {
		audioCfg.SpeakingRate = req.Speed * emotionSpeed(req.Emotion)
		audioCfg.Pitch = emotionPitch(req.Emotion)
	}

	resp, err := g.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: req.Text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: languageFromVoice(voiceName),
			Name:         voiceName,
		},
		AudioConfig: audioCfg,
	})
	if err != nil {
		return nil, fmt.Errorf("synthesize speech: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"voice": voiceName,
		"bytes": len(resp.AudioContent),
	}).Debug("google synthesis complete")

	return resp.AudioContent, nil
}

func (g *GoogleEngine) Voices(ctx context.Context) ([]string, error) {
	resp, err := g.client.ListVoices(ctx, &texttospeechpb.ListVoicesRequest{})
	if err != nil {
		return nil, err
	}
	voices := []string{}
	for _, v := range resp.Voices {
		voices = append(voices, v.Name)
	}
	return voices, nil
}

// languageFromVoice derives the language code from a voice name like
// "en-US-Neural2-C".
func languageFromVoice(name string) string {
	parts := strings.SplitN(name, "-", 3)
	if len(parts) >= 2 {
		return parts[0] + "-" + parts[1]
	}
	return "en-US"
}
