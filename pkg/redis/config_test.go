package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{name: "missing url", config: Config{}, wantErr: ErrURLRequired},
		{name: "valid url", config: Config{URL: "redis://localhost:6379/0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}

	t.Run("malformed url", func(t *testing.T) {
		cfg := Config{URL: "http://not-redis"}
		assert.Error(t, cfg.Validate())
	})
}

func TestConfig_PrefixKey(t *testing.T) {
	cfg := Config{Prefix: "priceanalyzer"}
	assert.Equal(t, "priceanalyzer:dataset", cfg.PrefixKey("dataset"))

	cfg.Prefix = ""
	assert.Equal(t, "dataset", cfg.PrefixKey("dataset"))
}

func TestConfig_NewClient(t *testing.T) {
	cfg := Config{URL: "redis://localhost:6379/2"}
	client, err := cfg.NewClient()
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, "localhost:6379", client.Options().Addr)
	assert.Equal(t, 2, client.Options().DB)
}
