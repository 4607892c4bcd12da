package qconnect

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGradesReady(t *testing.T) {
	require.True(t, GradesReady("BIOLOGY Q1 Q2 Q3 Q4 A B"))
	require.True(t, GradesReady("Q1 Q2"))

	// a lone quarter marker is a half-rendered page
	require.False(t, GradesReady("Q3"))
	require.False(t, GradesReady(""))
	require.False(t, GradesReady("Loading... Q1 Q2 Q3 Q4"))
	require.False(t, GradesReady("loading your gradebook"))
}
