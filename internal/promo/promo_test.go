package promo

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Validate(t *testing.T) {
	store := NewStore(zerolog.Nop())
	store.Put(Definition{Code: "VERAO10", Percentage: 10})
	store.Put(Definition{Code: "BEMVINDO", Amount: 15, UsageLimit: 100, Used: 40})
	store.Put(Definition{Code: "ESGOTADO", Amount: 5, UsageLimit: 3, Used: 3})
	store.Put(Definition{Code: "ANTIGO", Percentage: 20, ExpiresAt: time.Now().Add(-time.Hour)})

	ctx := context.Background()

	v, err := store.Validate(ctx, "VERAO10")
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Equal(t, 10.0, v.Percentage)
	assert.Equal(t, -1, v.UsageRemaining, "no usage limit means unlimited")

	v, err = store.Validate(ctx, "bemvindo")
	require.NoError(t, err)
	assert.True(t, v.Valid, "codes are case-insensitive")
	assert.Equal(t, 60, v.UsageRemaining)

	v, err = store.Validate(ctx, "ESGOTADO")
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Equal(t, 0, v.UsageRemaining, "exhausted codes report zero remaining")

	v, err = store.Validate(ctx, "ANTIGO")
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.True(t, v.ExpiresAt.Before(time.Now()), "expiry is reported, not enforced here")

	v, err = store.Validate(ctx, "NAOEXISTE")
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.Equal(t, "code not found", v.Reason)
}

func writeCodeFile(t *testing.T, name string, gzipped bool, lines []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	if gzipped {
		gz := gzip.NewWriter(f)
		for _, line := range lines {
			_, err := gz.Write([]byte(line + "\n"))
			require.NoError(t, err)
		}
		require.NoError(t, gz.Close())
		return path
	}
	for _, line := range lines {
		_, err := f.WriteString(line + "\n")
		require.NoError(t, err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeCodeFile(t, "coupons.jsonl", false, []string{
		`{"code":"VERAO10","percentage":10}`,
		"",
		"# seasonal codes",
		`{"code":"FRETE20","amount":20,"usageLimit":5}`,
		`not json at all`,
		`{"percentage":5}`,
	})

	store, err := LoadFile(context.Background(), path, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, 2, store.Size(), "malformed and codeless lines are skipped")

	v, err := store.Validate(context.Background(), "FRETE20")
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Equal(t, 20.0, v.Amount)
	assert.Equal(t, 5, v.UsageRemaining)
}

func TestLoadFile_Gzipped(t *testing.T) {
	path := writeCodeFile(t, "coupons.jsonl.gz", true, []string{
		`{"code":"VERAO10","percentage":10}`,
		`{"code":"INVERNO15","percentage":15}`,
	})

	store, err := LoadFile(context.Background(), path, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 2, store.Size())
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile(context.Background(), "/does/not/exist.jsonl", zerolog.Nop())
	assert.Error(t, err)
}

func TestHTTPValidator(t *testing.T) {
	remaining := 3
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/coupons/VERAO10":
			json.NewEncoder(w).Encode(map[string]any{
				"valid":          true,
				"percentage":     10.0,
				"usageRemaining": remaining,
			})
		case "/v1/coupons/NAOEXISTE":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	v := NewHTTPValidator(srv.URL, "coupons", zerolog.Nop())
	ctx := context.Background()

	res, err := v.Validate(ctx, "VERAO10")
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, 10.0, res.Percentage)
	assert.Equal(t, 3, res.UsageRemaining)

	res, err = v.Validate(ctx, "NAOEXISTE")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, "code not found", res.Reason)

	_, err = v.Validate(ctx, "QUEBRADO")
	assert.Error(t, err, "a broken promotions service is an error, not an invalid code")
}
