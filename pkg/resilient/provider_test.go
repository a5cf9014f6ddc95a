package resilient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/crosstalk-ai/crosstalk/pkg/cache"
	"github.com/crosstalk-ai/crosstalk/pkg/core"
	"github.com/crosstalk-ai/crosstalk/pkg/core/types"
	"github.com/crosstalk-ai/crosstalk/pkg/retry"
)

// fakeProvider scripts Generate/Stream outcomes per call.
type fakeProvider struct {
	generateCalls int
	streamCalls   int
	generate      func(call int) (*types.Response, error)
	stream        func(call int) (core.DeltaStream, error)
}

func (f *fakeProvider) ModelID() string                 { return "fake/model" }
func (f *fakeProvider) Capabilities() core.Capabilities { return core.Capabilities{} }

func (f *fakeProvider) Generate(ctx context.Context, req *types.Request) (*types.Response, error) {
	f.generateCalls++
	return f.generate(f.generateCalls)
}

func (f *fakeProvider) Stream(ctx context.Context, req *types.Request) (core.DeltaStream, error) {
	f.streamCalls++
	return f.stream(f.streamCalls)
}

type staticStream struct{ deltas []*types.Delta }

func (s *staticStream) Next() (*types.Delta, error) {
	if len(s.deltas) == 0 {
		return nil, errors.New("exhausted")
	}
	d := s.deltas[0]
	s.deltas = s.deltas[1:]
	return d, nil
}
func (s *staticStream) Close() error { return nil }

func fastPolicy() retry.Policy {
	p := retry.DefaultPolicy()
	p.MaxAttempts = 3
	p.BaseDelay = time.Millisecond
	return p
}

func request(text string) *types.Request {
	return &types.Request{
		Model:    "fake/model",
		Messages: []types.Message{types.UserText(text)},
	}
}

func response(text string) *types.Response {
	return &types.Response{
		ID:      "resp_1",
		Role:    types.RoleAssistant,
		Content: []types.ContentBlock{types.Text(text)},
	}
}

func TestGenerateCacheHitSkipsRawCall(t *testing.T) {
	fake := &fakeProvider{generate: func(int) (*types.Response, error) {
		return response("fresh"), nil
	}}
	c, err := cache.New(cache.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	p := Wrap(fake, WithCache(c), WithPolicy(fastPolicy()))

	first, err := p.Generate(context.Background(), request("Hello"))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	second, err := p.Generate(context.Background(), request("Hello"))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if fake.generateCalls != 1 {
		t.Errorf("raw Generate called %d times, want 1 (second call served from cache)", fake.generateCalls)
	}
	if first.Text() != second.Text() {
		t.Errorf("cached response differs: %q vs %q", first.Text(), second.Text())
	}
}

func TestGenerateRetriesThenStores(t *testing.T) {
	fake := &fakeProvider{generate: func(call int) (*types.Response, error) {
		if call < 3 {
			return nil, core.NewRateLimitError("throttled", 0)
		}
		return response("finally"), nil
	}}
	c, err := cache.New(cache.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	p := Wrap(fake, WithCache(c), WithPolicy(fastPolicy()))

	resp, err := p.Generate(context.Background(), request("Hello"))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Text() != "finally" {
		t.Errorf("Text = %q", resp.Text())
	}
	if fake.generateCalls != 3 {
		t.Errorf("raw Generate called %d times, want 3", fake.generateCalls)
	}

	// The retried success was stored: a repeat is a hit.
	if _, err := p.Generate(context.Background(), request("Hello")); err != nil {
		t.Fatal(err)
	}
	if fake.generateCalls != 3 {
		t.Errorf("raw Generate called %d times after repeat, want still 3", fake.generateCalls)
	}
}

func TestGeneratePermanentErrorNotRetried(t *testing.T) {
	fake := &fakeProvider{generate: func(int) (*types.Response, error) {
		return nil, core.NewAuthenticationError("bad key")
	}}

	p := Wrap(fake, WithPolicy(fastPolicy()))
	_, err := p.Generate(context.Background(), request("Hello"))

	var coreErr *core.Error
	if !errors.As(err, &coreErr) || coreErr.Type != core.ErrAuthentication {
		t.Fatalf("err = %v, want authentication error", err)
	}
	if fake.generateCalls != 1 {
		t.Errorf("raw Generate called %d times, want 1", fake.generateCalls)
	}
}

func TestStreamRetriesEstablishmentOnly(t *testing.T) {
	fake := &fakeProvider{stream: func(call int) (core.DeltaStream, error) {
		if call == 1 {
			return nil, core.NewOverloadedError("busy")
		}
		return &staticStream{deltas: []*types.Delta{types.NewTextDelta("hi")}}, nil
	}}

	p := Wrap(fake, WithPolicy(fastPolicy()))

	stream, err := p.Stream(context.Background(), request("Hello"))
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer stream.Close()

	if fake.streamCalls != 2 {
		t.Errorf("raw Stream called %d times, want 2", fake.streamCalls)
	}
	d, err := stream.Next()
	if err != nil || d.Text != "hi" {
		t.Errorf("Next = %+v, %v", d, err)
	}
}

func TestStreamBypassesCache(t *testing.T) {
	fake := &fakeProvider{stream: func(int) (core.DeltaStream, error) {
		return &staticStream{}, nil
	}}
	c, err := cache.New(cache.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	p := Wrap(fake, WithCache(c), WithPolicy(fastPolicy()))

	for i := 0; i < 2; i++ {
		s, err := p.Stream(context.Background(), request("Hello"))
		if err != nil {
			t.Fatal(err)
		}
		s.Close()
	}
	if fake.streamCalls != 2 {
		t.Errorf("raw Stream called %d times, want 2 (streams are never cached)", fake.streamCalls)
	}
}

func TestGenerateWithoutCacheAlwaysCallsRaw(t *testing.T) {
	fake := &fakeProvider{generate: func(int) (*types.Response, error) {
		return response("fresh"), nil
	}}

	p := Wrap(fake, WithPolicy(fastPolicy()))
	for i := 0; i < 2; i++ {
		if _, err := p.Generate(context.Background(), request("Hello")); err != nil {
			t.Fatal(err)
		}
	}
	if fake.generateCalls != 2 {
		t.Errorf("raw Generate called %d times, want 2", fake.generateCalls)
	}
}
