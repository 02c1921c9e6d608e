package voice

import (
	"bytes"
	"context"
	"fmt"

	openai "github.com/openai/openai-go/v3"

	"marvin/pkg/audioconv"
)

// Transcriber turns mono 16 kHz samples into text.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm16k []float32) (string, error)
}

// OpenAI sends recordings to the hosted transcription model.
type OpenAI struct {
	client   openai.Client
	model    openai.AudioModel
	language string
}

func NewOpenAI(client openai.Client, language string) *OpenAI {
	return &OpenAI{client: client, model: openai.AudioModelWhisper1, language: language}
}

func (o *OpenAI) Transcribe(ctx context.Context, pcm16k []float32) (string, error) {
	if len(pcm16k) == 0 {
		return "", nil
	}
	wav, err := audioconv.WAVBytes(pcm16k, audioconv.TargetRate)
	if err != nil {
		return "", err
	}

	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(wav), "command.wav", "audio/wav"),
		Model: o.model,
	}
	if o.language != "" && o.language != "auto" {
		params.Language = openai.String(o.language)
	}

	res, err := o.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai transcription: %w", err)
	}
	return res.Text, nil
}

// Fallback tries each transcriber in turn until one succeeds.
type Fallback []Transcriber

func (f Fallback) Transcribe(ctx context.Context, pcm16k []float32) (string, error) {
	var last error
	for _, t := range f {
		text, err := t.Transcribe(ctx, pcm16k)
		if err == nil {
			return text, nil
		}
		last = err
	}
	if last == nil {
		return "", fmt.Errorf("no transcriber configured")
	}
	return "", last
}
