package main

import (
	"bytes"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/chainsafe/tornado-prover/pkg/app/errors"
	"github.com/chainsafe/tornado-prover/pkg/hasher"
	"github.com/chainsafe/tornado-prover/pkg/note"
)

func TestParseNoteCmd(t *testing.T) {
	d, err := note.NewDeposit(hasher.NewMiMC(), big.NewInt(1), big.NewInt(2))
	require.NoError(t, err)

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"parse-note", note.Serialize("eth", "0.1", 1, d)})
	require.NoError(t, cmd.Execute())

	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "eth", got["currency"])
	assert.Equal(t, d.CommitmentHex(), got["commitment"])
	assert.Equal(t, d.NullifierHashHex(), got["nullifierHash"])
}

func TestParseNoteCmd_ExitCode(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"parse-note", "tornado-eth-0.1-1-0x00"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, 2, apperrors.ExitCode(err))
}

func TestLoadEnv_MissingConfig(t *testing.T) {
	_, err := loadEnv(&options{configPath: t.TempDir() + "/missing.yaml"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CategoryFormat))
}
