//go:build llama

package provider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	llama "github.com/go-skynet/go-llama.cpp"

	"adaptd/pkg/types"
)

// llamaProvider prompts a local gguf model to classify text. Compiled only
// with the 'llama' build tag; the stub variant keeps default builds CGO-free.
type llamaProvider struct {
	model       *llama.LLama
	task        string
	threads     int
	footprintMB int
}

func newLlama(desc types.ModelDescriptor, ctxSize, threads int) (Provider, error) {
	if strings.TrimSpace(desc.Path) == "" {
		return nil, fmt.Errorf("%s: model path is empty", desc.Key())
	}
	if ctxSize <= 0 {
		ctxSize = 2048
	}
	if threads <= 0 {
		threads = 4
	}
	m, err := llama.New(desc.Path, llama.SetContext(ctxSize))
	if err != nil {
		return nil, err
	}
	footprint := desc.MemoryEstimateMB
	if fi, err := os.Stat(desc.Path); err == nil {
		if mb := int(fi.Size() / (1024 * 1024)); mb > 0 {
			footprint = mb
		}
	}
	if footprint <= 0 {
		footprint = 1
	}
	return &llamaProvider{model: m, task: desc.Task, threads: threads, footprintMB: footprint}, nil
}

func (p *llamaProvider) Predict(ctx context.Context, text string) (Prediction, error) {
	if p.model == nil {
		return Prediction{}, errors.New("llama model not initialized")
	}
	prompt := classifierPrompt(p.task, text)
	p.model.SetTokenCallback(func(string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	})
	out, err := p.model.Predict(prompt,
		llama.SetThreads(p.threads),
		llama.SetTokens(16),
		llama.SetTemperature(0),
	)
	if err != nil {
		if ctx.Err() != nil {
			return Prediction{}, ctx.Err()
		}
		return Prediction{}, err
	}
	label := strings.ToLower(strings.TrimSpace(strings.Split(out, "\n")[0]))
	if label == "" {
		return Prediction{}, errors.New("empty model output")
	}
	return Prediction{
		Label:      label,
		Confidence: 0.85,
		Details:    map[string]any{"raw": out},
	}, nil
}

func (p *llamaProvider) FootprintMB() int { return p.footprintMB }

func (p *llamaProvider) Close() error {
	if p.model != nil {
		p.model.Free()
		p.model = nil
	}
	return nil
}

func classifierPrompt(task, text string) string {
	switch task {
	case "sentiment":
		return "Classify the sentiment of the following text as positive, negative or neutral. Answer with one word.\nText: " + text + "\nAnswer:"
	case "emotion":
		return "Name the dominant emotion in the following text (joy, sadness, anger, fear, surprise or neutral). Answer with one word.\nText: " + text + "\nAnswer:"
	default:
		return "Name the main topic of the following text in one word.\nText: " + text + "\nAnswer:"
	}
}
