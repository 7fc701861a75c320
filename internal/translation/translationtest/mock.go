// Package translationtest provides an in-memory translation.Service for tests.
package translationtest

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/interlnkd/LibreTranslate/internal/translation"
)

// MockService is an in-memory translation.Service. It translates by prefixing
// the target code ("en:Hallo") unless Translate is set.
type MockService struct {
	// Translate overrides the default translation.
	Translate func(ctx context.Context, text, source, target string) (string, error)
	// Latency returns an artificial delay for text.
	Latency func(text string) time.Duration
	// FailOn makes TranslateOne fail for these exact texts.
	FailOn map[string]error
	// Detections is returned by DetectLanguages.
	Detections []translation.Detection
	DetectErr  error
	// NoPaths lists "src->tgt" pairs that have no translation path.
	NoPaths map[string]bool

	translateCalls atomic.Int64
	detectCalls    atomic.Int64
	inFlight       atomic.Int64
	peakInFlight   atomic.Int64

	mu    sync.Mutex
	texts []string
}

var _ translation.Service = (*MockService)(nil)

func (m *MockService) TranslateOne(ctx context.Context, text, source, target string) (string, error) {
	m.translateCalls.Add(1)
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		peak := m.peakInFlight.Load()
		if n <= peak || m.peakInFlight.CompareAndSwap(peak, n) {
			break
		}
	}

	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()

	if m.Latency != nil {
		if d := m.Latency(text); d > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(d):
			}
		}
	}
	if err, ok := m.FailOn[text]; ok {
		return "", err
	}
	if m.Translate != nil {
		return m.Translate(ctx, text, source, target)
	}
	return target + ":" + text, nil
}

func (m *MockService) DetectLanguages(ctx context.Context, texts []string) ([]translation.Detection, error) {
	m.detectCalls.Add(1)
	if m.DetectErr != nil {
		return nil, m.DetectErr
	}
	return m.Detections, nil
}

func (m *MockService) IsPathAvailable(source, target string) bool {
	return !m.NoPaths[strings.ToLower(source)+"->"+strings.ToLower(target)]
}

// TranslateCalls returns how many times TranslateOne was called.
func (m *MockService) TranslateCalls() int64 { return m.translateCalls.Load() }

// DetectCalls returns how many times DetectLanguages was called.
func (m *MockService) DetectCalls() int64 { return m.detectCalls.Load() }

// PeakInFlight returns the highest number of concurrent TranslateOne calls seen.
func (m *MockService) PeakInFlight() int64 { return m.peakInFlight.Load() }

// Texts returns every text passed to TranslateOne, in call order.
func (m *MockService) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}
