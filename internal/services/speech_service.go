// Package services – SpeechService
//
// This file implements the speech-recognition boundary adapter. It wraps a
// remote Whisper transcription backend behind a bounded worker pool so that
// model inference never saturates the request path: at most Workers
// transcriptions run concurrently, and callers waiting for a slot honour
// context cancellation.
//
// The backend itself is a thin interface; the production implementation uses
// the OpenAI audio transcription API with a lazily constructed, process-wide
// client.
package services

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	openai "github.com/sashabaranov/go-openai"
)

// TranscriptionResult is the outcome of a single speech-recognition call.
type TranscriptionResult struct {
	Text       string  `json:"text"`
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
}

// SpeechBackend performs the actual model inference. Implementations must be
// safe for concurrent use.
type SpeechBackend interface {
	Transcribe(ctx context.Context, audio []byte, language string) (TranscriptionResult, error)
}

// SpeechService throttles transcription requests through a fixed-size worker
// pool. It is safe for concurrent use.
type SpeechService struct {
	backend SpeechBackend
	sem     chan struct{}
	workers int
}

// NewSpeechService constructs a SpeechService with the given backend and pool
// size. Workers <= 0 is coerced to 2, matching the small CPU budget of the
// inference path.
func NewSpeechService(backend SpeechBackend, workers int) *SpeechService {
	if workers <= 0 {
		workers = 2
	}
	return &SpeechService{
		backend: backend,
		sem:     make(chan struct{}, workers),
		workers: workers,
	}
}

// Transcribe converts audio bytes to text, returning the detected language
// and an average confidence score. The optional language parameter is a hint
// passed to the model. The call blocks until a pool slot is free or ctx is
// cancelled; inference itself runs at bounded concurrency.
func (s *SpeechService) Transcribe(ctx context.Context, audio []byte, language string) (TranscriptionResult, error) {
	if len(audio) == 0 {
		return TranscriptionResult{}, ErrEmptyAudio
	}

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return TranscriptionResult{}, ctx.Err()
	}
	defer func() { <-s.sem }()

	return s.backend.Transcribe(ctx, audio, language)
}

// Workers returns the configured pool size.
func (s *SpeechService) Workers() int { return s.workers }

// --- OpenAI Whisper backend ---

var (
	openaiOnce   sync.Once
	openaiClient *openai.Client
)

// whisperClient returns the process-wide OpenAI client, constructing it on
// first use.
func whisperClient(apiKey string) *openai.Client {
	openaiOnce.Do(func() {
		openaiClient = openai.NewClient(apiKey)
	})
	return openaiClient
}

// WhisperBackend implements SpeechBackend on top of the OpenAI audio
// transcription API.
type WhisperBackend struct {
	client *openai.Client
}

// NewWhisperBackend builds a WhisperBackend for the given API key.
func NewWhisperBackend(apiKey string) *WhisperBackend {
	return &WhisperBackend{client: whisperClient(apiKey)}
}

// Transcribe uploads the audio bytes and requests a verbose response so that
// the detected language and per-segment log probabilities are available.
// Confidence is the mean segment avg_logprob, mirroring what the model
// reports (values are <= 0; closer to 0 is better).
func (b *WhisperBackend) Transcribe(ctx context.Context, audio []byte, language string) (TranscriptionResult, error) {
	req := openai.AudioRequest{
		Model:    openai.Whisper1,
		Reader:   bytes.NewReader(audio),
		FilePath: "audio.wav", // extension tells the API the container format
		Format:   openai.AudioResponseFormatVerboseJSON,
		Language: language,
	}
	resp, err := b.client.CreateTranscription(ctx, req)
	if err != nil {
		return TranscriptionResult{}, fmt.Errorf("create transcription: %w", err)
	}

	confidence := 0.0
	if n := len(resp.Segments); n > 0 {
		for _, seg := range resp.Segments {
			confidence += seg.AvgLogprob
		}
		confidence /= float64(n)
	}

	lang := resp.Language
	if lang == "" {
		lang = "unknown"
	}
	return TranscriptionResult{
		Text:       resp.Text,
		Language:   lang,
		Confidence: confidence,
	}, nil
}
