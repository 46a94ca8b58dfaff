package strategy

import (
	"context"
	"testing"

	"github.com/pulse-fetch/pulse-fetch/pkg/fetch"
)

// fakeClient is a scripted fetch.Client for selector tests.
type fakeClient struct {
	tag    fetch.Tag
	result fetch.Result
	err    error
	calls  int
}

func (f *fakeClient) Fetch(ctx context.Context, url string, opts fetch.Options) (fetch.Result, error) {
	f.calls++
	return f.result, f.err
}
func (f *fakeClient) Tag() fetch.Tag { return f.tag }
func (f *fakeClient) Close() error   { return nil }

// TestSelector_NativeSuccess covers scenario A: Native succeeds first try.
func TestSelector_NativeSuccess(t *testing.T) {
	native := &fakeClient{tag: fetch.Native, result: fetch.Result{Success: true, Source: fetch.Native, RawContent: "<h1>Test Content</h1>"}}
	vendor := &fakeClient{tag: fetch.Vendor}
	sel := &Selector{Native: native, Vendor: vendor, Mode: ModeCost}

	result, diag, err := sel.Select(context.Background(), "https://test.com/page", fetch.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if vendor.calls != 0 {
		t.Errorf("expected vendor not to be attempted, got %d calls", vendor.calls)
	}
	if len(diag.StrategiesAttempted) != 1 || diag.StrategiesAttempted[0] != fetch.Native {
		t.Errorf("expected only native attempted, got %v", diag.StrategiesAttempted)
	}
}

// TestSelector_NativeForbiddenVendorSuccess covers scenario B.
func TestSelector_NativeForbiddenVendorSuccess(t *testing.T) {
	native := &fakeClient{tag: fetch.Native, result: fetch.Result{Success: false, StatusCode: 403, ErrorMessage: "HTTP 403"}}
	vendor := &fakeClient{tag: fetch.Vendor, result: fetch.Result{Success: true, Source: fetch.Vendor, RawContent: "Content"}}
	sel := &Selector{Native: native, Vendor: vendor, Mode: ModeCost}

	result, diag, err := sel.Select(context.Background(), "https://test.com/page", fetch.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success || result.Source != fetch.Vendor {
		t.Fatalf("expected vendor success, got %+v", result)
	}
	want := []fetch.Tag{fetch.Native, fetch.Vendor}
	if len(diag.StrategiesAttempted) != 2 || diag.StrategiesAttempted[0] != want[0] || diag.StrategiesAttempted[1] != want[1] {
		t.Errorf("expected attempted order [native vendor], got %v", diag.StrategiesAttempted)
	}
	if diag.StrategyErrors[fetch.Native] != "HTTP 403" {
		t.Errorf("expected native error 'HTTP 403', got %q", diag.StrategyErrors[fetch.Native])
	}
	if _, ok := diag.StrategyErrors[fetch.Vendor]; ok {
		t.Error("expected no vendor error recorded on success")
	}
}

// TestSelector_AllFailCompositeError covers scenario C.
func TestSelector_AllFailCompositeError(t *testing.T) {
	native := &fakeClient{tag: fetch.Native, result: fetch.Result{Success: false, StatusCode: 403, ErrorMessage: "HTTP 403"}}
	vendor := &fakeClient{tag: fetch.Vendor, result: fetch.Result{Success: false, ErrorMessage: "Rate limited"}}
	sel := &Selector{Native: native, Vendor: vendor, Mode: ModeCost}

	result, diag, err := sel.Select(context.Background(), "https://test.com/page", fetch.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success {
		t.Fatal("expected failure")
	}
	for _, want := range []string{"All strategies failed", "Attempted: native, vendor", "native: HTTP 403", "vendor: Rate limited"} {
		if !containsSubstr(result.ErrorMessage, want) {
			t.Errorf("expected message to contain %q, got %q", want, result.ErrorMessage)
		}
	}
	if len(diag.Timing) != 2 {
		t.Errorf("expected timing recorded for both strategies, got %v", diag.Timing)
	}
}

// TestSelector_AuthStopsBeforeFurtherStrategies covers scenario D and
// testable property 7.
func TestSelector_AuthStopsBeforeFurtherStrategies(t *testing.T) {
	native := &fakeClient{tag: fetch.Native, result: fetch.Result{Success: false, ErrorMessage: "connection reset"}}
	vendor := &fakeClient{tag: fetch.Vendor, result: fetch.Result{Success: false, IsAuthError: true, ErrorMessage: "Unauthorized: Invalid API key"}}
	sel := &Selector{Native: native, Vendor: vendor, Mode: ModeCost}

	result, diag, err := sel.Select(context.Background(), "https://test.com/page", fetch.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsAuthError {
		t.Error("expected composite result to carry isAuthError=true")
	}
	if diag.StrategiesAttempted[len(diag.StrategiesAttempted)-1] != fetch.Vendor {
		t.Errorf("expected strategiesAttempted to end with vendor, got %v", diag.StrategiesAttempted)
	}
}

func TestSelector_SpeedModeSkipsNative(t *testing.T) {
	native := &fakeClient{tag: fetch.Native, result: fetch.Result{Success: true}}
	vendor := &fakeClient{tag: fetch.Vendor, result: fetch.Result{Success: true, Source: fetch.Vendor}}
	sel := &Selector{Native: native, Vendor: vendor, Mode: ModeSpeed}

	_, diag, err := sel.Select(context.Background(), "https://test.com/page", fetch.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if native.calls != 0 {
		t.Error("expected native not to be attempted in speed mode")
	}
	if _, ok := diag.StrategyErrors[fetch.Native]; ok {
		t.Error("expected native to be absent from strategyErrors entirely in speed mode")
	}
}

func TestSelector_VendorNotConfigured(t *testing.T) {
	native := &fakeClient{tag: fetch.Native, result: fetch.Result{Success: false, ErrorMessage: "boom"}}
	sel := &Selector{Native: native, Vendor: nil, Mode: ModeCost}

	result, diag, err := sel.Select(context.Background(), "https://test.com/page", fetch.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success {
		t.Fatal("expected failure")
	}
	if diag.StrategyErrors[fetch.Vendor] != "vendor client not configured" {
		t.Errorf("expected vendor-not-configured diagnostic, got %q", diag.StrategyErrors[fetch.Vendor])
	}
	for _, tag := range diag.StrategiesAttempted {
		if tag == fetch.Vendor {
			t.Error("expected vendor not to appear in strategiesAttempted when unconfigured")
		}
	}
}

func TestSelector_LearnedStrategyTriedFirst(t *testing.T) {
	native := &fakeClient{tag: fetch.Native, result: fetch.Result{Success: true}}
	vendor := &fakeClient{tag: fetch.Vendor, result: fetch.Result{Success: true, Source: fetch.Vendor}}
	table := NewLearnedTable("", 0)
	if err := table.Record("https://test.com/page", fetch.Vendor); err != nil {
		t.Fatalf("Record: %v", err)
	}
	sel := &Selector{Native: native, Vendor: vendor, Table: table, Mode: ModeCost}

	result, diag, err := sel.Select(context.Background(), "https://test.com/page", fetch.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Source != fetch.Vendor {
		t.Errorf("expected learned vendor strategy to be tried first, got %+v", result)
	}
	if diag.StrategiesAttempted[0] != fetch.Vendor {
		t.Errorf("expected vendor to be attempted first, got %v", diag.StrategiesAttempted)
	}
}

func containsSubstr(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
