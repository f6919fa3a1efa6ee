package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	context_ "github.com/mkrupp/userdir/internal/infra/context"
	"github.com/mkrupp/userdir/internal/infra/logging"
)

type requestKey struct{}

func TestTracingHandler(t *testing.T) {
	t.Parallel()

	routeAttr := func(ctx context.Context) (slog.Attr, bool) {
		route, ok := ctx.Value(requestKey{}).(string)

		return slog.String("route", route), ok
	}

	tests := []struct {
		name      string
		attrs     []logging.ContextAttr
		ctx       context.Context
		wantTrace any
		wantRoute any
	}{
		{
			name:      "default adds trace id",
			ctx:       context_.WithTraceID(context.Background(), "abc"),
			wantTrace: map[string]any{"id": "abc"},
		},
		{
			name: "default skips missing trace id",
			ctx:  context.Background(),
		},
		{
			name:      "custom extractors",
			attrs:     []logging.ContextAttr{routeAttr},
			ctx:       context.WithValue(context_.WithTraceID(context.Background(), "abc"), requestKey{}, "/users"),
			wantRoute: "/users",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer

			//nolint:exhaustruct
			log := slog.New(logging.NewTracingHandler(slog.NewJSONHandler(&buf, nil), tt.attrs...))
			log.InfoContext(tt.ctx, "hello")

			var record map[string]any
			if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
				t.Fatalf("unmarshal %q: %v", buf.String(), err)
			}

			if tt.wantTrace == nil {
				if _, ok := record["trace"]; ok {
					t.Errorf("trace = %v, want absent", record["trace"])
				}
			} else if got, _ := json.Marshal(record["trace"]); string(got) != mustJSON(t, tt.wantTrace) {
				t.Errorf("trace = %s, want %s", got, mustJSON(t, tt.wantTrace))
			}

			if record["route"] != tt.wantRoute {
				t.Errorf("route = %v, want %v", record["route"], tt.wantRoute)
			}
		})
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()

	out, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	return string(out)
}
