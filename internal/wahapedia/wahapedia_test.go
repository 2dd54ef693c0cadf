package wahapedia

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureDir = "testdata/orks"

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Gork’s Klaw", "gork's klaw"},
		{"  Gork`s Klaw ", "gork's klaw"},
		{"Gork´s Klaw", "gork's klaw"},
		{"“Da Boss”", `"da boss"`},
		{"WARBOSS IN MEGA ARMOUR", "warboss in mega armour"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeName(tt.in), "input %q", tt.in)
	}
	assert.True(t, SameName("Mork‘s Roar", "mork's roar"))
}

func TestScrubHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "  no markup here ", "no markup here"},
		{"spans", `capacity of 12 <span class="kwb">Orks</span> models`, "capacity of 12 Orks models"},
		{"breaks", "<b>WHEN:</b> Fight phase.<br><b>TARGET:</b> One unit.", "WHEN: Fight phase.\nTARGET: One unit."},
		{"list", "<ul><li>One</li><li>Two</li></ul>", "- One\n- Two"},
		{"entities", "Mork&rsquo;s &amp; Gork&#39;s&nbsp;rules &lt;x&gt;", "Mork’s & Gork's rules <x>"},
		{"blank runs", "a<br><br><br><br>b", "a\n\nb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScrubHTML(tt.in))
		})
	}
}

func TestLoad_Fixture(t *testing.T) {
	idx, err := Load(fixtureDir)
	require.NoError(t, err)

	assert.Equal(t, "2026-09-30 10:00:00", idx.LastUpdate())

	// BOM on the first header column must not hide the id field
	f, ok := idx.FactionByName("orks")
	require.True(t, ok)
	assert.Equal(t, "ORK", f.ID)

	ds, ok := idx.DatasheetByName("ORK", "ghazghkull thraka")
	require.True(t, ok)
	assert.Equal(t, "000000006", ds.ID)
	assert.Equal(t, "Epic Hero", ds.Role)

	trukk, ok := idx.DatasheetByName("ORK", "Trukk")
	require.True(t, ok)
	assert.NotContains(t, trukk.Transport, "<span")
	assert.Contains(t, trukk.Transport, "transport capacity of 12 Orks Infantry models")
	assert.Equal(t, "1-3", trukk.DamagedW)

	models := idx.Models("000000003")
	require.Len(t, models, 2)
	assert.Equal(t, "Boss Nob", models[0].Name, "stat lines ordered by line column")
	assert.Equal(t, "Boy", models[1].Name)
	assert.Equal(t, `6"`, models[1].M)

	wargear := idx.Wargear("000000006")
	require.Len(t, wargear, 3)
	assert.Equal(t, "Gork's Klaw - strike", wargear[1].Name)
	assert.Equal(t, "Gork's Klaw - sweep", wargear[2].Name)

	kws := idx.Keywords("000000003")
	require.Len(t, kws, 5)
	assert.True(t, kws[4].IsFaction)
	assert.False(t, kws[0].IsFaction)

	assert.Equal(t, []string{"000000003", "000000005"}, idx.LeaderTargets("000000001"))

	ref, ok := idx.AbilityRef("000008339")
	require.True(t, ok)
	assert.Equal(t, "Waaagh!", ref.Name)
	assert.Equal(t, "Once per battle, at the start of your Command phase, this model can call a Waaagh!", ref.Description)

	strats := idx.Stratagems("000000861")
	require.Len(t, strats, 2)
	assert.Contains(t, strats[0].Description, "WHEN: Fight phase.\nTARGET:")
}

func TestIndex_Lookups(t *testing.T) {
	idx, err := Load(fixtureDir)
	require.NoError(t, err)

	_, ok := idx.FactionByName("Tyranids")
	assert.False(t, ok)

	byID, ok := idx.FactionByName("sm")
	require.True(t, ok)
	assert.Equal(t, "Space Marines", byID.Name)

	// datasheet names are scoped to their faction
	_, ok = idx.DatasheetByName("SM", "Boyz")
	assert.False(t, ok)

	det, ok := idx.DetachmentByName("ORK", "war horde")
	require.True(t, ok)
	assert.Equal(t, "000000861", det.ID)
	_, ok = idx.DetachmentByName("SM", "War Horde")
	assert.False(t, ok)

	enh, ok := idx.EnhancementByName("ORK", "Headwoppa’s Killchoppa")
	require.True(t, ok)
	assert.Equal(t, "20", enh.Cost)
	assert.Len(t, idx.Enhancements(det.ID), 2)

	abilities := idx.FactionAbilities("ORK")
	require.Len(t, abilities, 1)
	assert.Equal(t, "Waaagh!", abilities[0].Name)

	factions := idx.Factions()
	require.Len(t, factions, 2)
	assert.Equal(t, "Orks", factions[0].Name)

	sum := idx.Summary()
	assert.Equal(t, 9, sum.Datasheets)
	assert.Equal(t, 2, sum.Stratagems)

	names := []string{}
	for _, ds := range idx.DatasheetsByFaction("ORK") {
		names = append(names, ds.Name)
	}
	assert.Equal(t, []string{"Battlewagon", "Boyz", "Ghazghkull Thraka", "Meganobz", "Painboy", "Stormboyz", "Trukk", "Warboss"}, names)
}

func TestLoadTables_MissingFile(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadTables(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load Factions")
}

func TestLoadTables_OptionalLastUpdate(t *testing.T) {
	dir := t.TempDir()
	entries, err := os.ReadDir(fixtureDir)
	require.NoError(t, err)
	for _, e := range entries {
		if e.Name() == FileLastUpdate+".csv" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(fixtureDir, e.Name()))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, e.Name()), data, 0o644))
	}

	tables, err := LoadTables(dir)
	require.NoError(t, err)
	assert.Equal(t, LastUpdateUnknown, tables.LastUpdate)
	assert.Len(t, tables.Factions, 2)
}

func TestReadPipeCSV_ShortRowsAndBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.csv")
	content := "id|name|link|\r\nA|Alpha|\r\n\r\nB|Bravo 6\" tall|http://b|\r\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rows, err := readPipeCSV(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Alpha", rows[0].str("name"))
	assert.Equal(t, "", rows[0].str("link"))
	assert.Equal(t, `Bravo 6" tall`, rows[1].str("name"))
	assert.Equal(t, "http://b", rows[1].str("link"))
}

func TestNewIndex_Empty(t *testing.T) {
	idx := NewIndex(Tables{})
	assert.Equal(t, LastUpdateUnknown, idx.LastUpdate())
	assert.Empty(t, idx.Models("nope"))
	_, ok := idx.Datasheet("nope")
	assert.False(t, ok)
}
