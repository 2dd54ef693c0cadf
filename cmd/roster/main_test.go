package main

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/pefman/w40k-roster/internal/api"
	"github.com/pefman/w40k-roster/internal/models"
	"github.com/pefman/w40k-roster/internal/session"
	"github.com/pefman/w40k-roster/internal/wahapedia"
)

const (
	dataDir = "../../internal/wahapedia/testdata/orks"
	roster  = "../../internal/parser/testdata/green_tide.txt"
)

func TestRun_ParseOnlyYAML(t *testing.T) {
	var out, errOut bytes.Buffer
	require.NoError(t, run([]string{"-parse-only", "-format", "yaml", roster}, nil, &out, &errOut))

	var got models.ParsedArmyList
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "Da Green Tide", got.ArmyName)
	assert.Equal(t, "War Horde", got.Detachment)
	assert.Len(t, got.Units, 20)
}

func TestRun_EnrichStdin(t *testing.T) {
	in := strings.NewReader("Mob (75 Points)\nOrks\nWar Horde\nIncursion (1000 Points)\n\nBATTLELINE\n\n" +
		"Boyz (75 Points)\n• 1x Boss Nob\n  ◦ 1x Choppa\n• 9x Boy\n  ◦ 9x Choppa\n")
	var out, errOut bytes.Buffer
	require.NoError(t, run([]string{"-data", dataDir, "-"}, in, &out, &errOut))

	var got models.EnrichedArmyList
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Len(t, got.Units, 1)
	assert.Equal(t, "000000003", got.Units[0].DatasheetID)
	assert.Equal(t, 10, got.Units[0].ModelCount)
}

func TestRun_Server(t *testing.T) {
	idx, err := wahapedia.Load(dataDir)
	require.NoError(t, err)
	srv := api.NewServer(session.NewStore(nil, nil), nil)
	srv.SetIndex(idx)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	var out, errOut bytes.Buffer
	require.NoError(t, run([]string{"-server", ts.URL, roster}, nil, &out, &errOut))

	var got models.EnrichedArmyList
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "ORK", got.FactionID)
	assert.Len(t, got.Units, 20)
}

func TestRun_BadArgs(t *testing.T) {
	var out, errOut bytes.Buffer
	assert.Error(t, run(nil, nil, &out, &errOut))
	assert.Error(t, run([]string{"-format", "xml", roster}, nil, &out, &errOut))
	assert.Error(t, run([]string{"missing.txt"}, nil, &out, &errOut))
	assert.Error(t, run([]string{"-data", t.TempDir(), roster}, nil, &out, &errOut))
	assert.Empty(t, out.String())
}

func TestRun_Text(t *testing.T) {
	var out, errOut bytes.Buffer
	require.NoError(t, run([]string{"-data", dataDir, "-format", "text", roster}, nil, &out, &errOut))

	text := out.String()
	assert.True(t, strings.HasPrefix(text, "Da Green Tide (2000 points)\nOrks / War Horde\n"), text)
	assert.Contains(t, text, "\nCharacters\n")
	assert.Contains(t, text, "\nDedicated Transports\n")
	assert.Contains(t, text, "Boyz #3")
	assert.Contains(t, text, "transport 12")
	assert.Contains(t, text, `! Could not match enhancement "Kunnin’ but Brutal"`)

	out.Reset()
	require.NoError(t, run([]string{"-parse-only", "-format", "text", roster}, nil, &out, &errOut))
	assert.Contains(t, out.String(), "\nBattleline\n")
}
