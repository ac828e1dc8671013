package requestid

import (
	"context"
	"testing"
)

func TestContextRoundTrip(t *testing.T) {
	if got := FromContext(context.Background()); got != "" {
		t.Errorf("FromContext(empty) = %q, want empty", got)
	}
	ctx := NewContext(context.Background(), "abc")
	if got := FromContext(ctx); got != "abc" {
		t.Errorf("FromContext = %q, want abc", got)
	}
}

func TestEnsure(t *testing.T) {
	ctx, id := Ensure(context.Background())
	if id == "" || FromContext(ctx) != id {
		t.Fatalf("Ensure generated %q, context has %q", id, FromContext(ctx))
	}

	again, same := Ensure(ctx)
	if same != id || again != ctx {
		t.Errorf("Ensure replaced an existing ID: %q -> %q", id, same)
	}

	if New() == New() {
		t.Error("New returned the same ID twice")
	}
}
