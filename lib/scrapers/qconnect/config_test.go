package qconnect

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigDefaultsCurrentQuarter(t *testing.T) {
	{
		cfg := Config{}
		cfg.defaults()
		require.Equal(t, Q3, cfg.CurrentQuarter)
	}
	{
		// config files spell quarters loosely
		cfg := Config{CurrentQuarter: " q2 "}
		cfg.defaults()
		require.Equal(t, Q2, cfg.CurrentQuarter)
	}
	{
		cfg := Config{CurrentQuarter: "SEM1"}
		cfg.defaults()
		require.Equal(t, Q3, cfg.CurrentQuarter)
	}
}
