package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/storyreel/storyreel/internal/catalog"
	"github.com/storyreel/storyreel/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setGenerateFlags(t *testing.T, voice, genre, typ, ratio string) {
	t.Helper()
	saved := generateFlags
	t.Cleanup(func() { generateFlags = saved })
	generateFlags.voice = voice
	generateFlags.bgmGenre = genre
	generateFlags.bgmType = typ
	generateFlags.ratio = ratio
}

func TestChoicesFromFlags(t *testing.T) {
	cat := catalog.Default()

	setGenerateFlags(t, "ko-KR-Wavenet-a", "nature", "", "1024x1536")
	p, err := choicesFromFlags(cat)
	require.NoError(t, err)
	assert.Equal(t, "ko-KR-Wavenet-a", *p.TTSVoice)
	assert.Equal(t, "nature", *p.BGMGenre)
	assert.Equal(t, "빗소리", *p.BGMType, "type defaults to the genre's first")
	assert.Equal(t, "1024x1536", *p.VideoRatio)

	setGenerateFlags(t, "", "", "", "")
	p, err = choicesFromFlags(cat)
	require.NoError(t, err)
	assert.Nil(t, p.TTSVoice)
	assert.Nil(t, p.BGMGenre)
}

func TestChoicesFromFlags_Rejected(t *testing.T) {
	cat := catalog.Default()
	tests := []struct {
		name                     string
		voice, genre, typ, ratio string
		want                     string
	}{
		{"voice", "robot", "", "", "", "unknown voice"},
		{"genre", "", "jazz", "", "", "unknown music genre"},
		{"type", "", "calm", "Z", "", "has no type"},
		{"type alone", "", "", "A", "", "--bgm-genre"},
		{"ratio", "", "", "", "4x3", "unknown video ratio"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setGenerateFlags(t, tt.voice, tt.genre, tt.typ, tt.ratio)
			_, err := choicesFromFlags(cat)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCatalogDiff(t *testing.T) {
	diff, err := catalogDiff("mine.yml", catalog.Default())
	require.NoError(t, err)
	assert.Empty(t, diff)

	cat := catalog.Default()
	cat.Preset.Ratio = "1024x1536"
	diff, err = catalogDiff("mine.yml", cat)
	require.NoError(t, err)
	assert.Contains(t, diff, "+++ mine.yml")
	assert.Contains(t, diff, "-    ratio: 1536x1024")
	assert.Contains(t, diff, "+    ratio: 1024x1536")
}

func TestRenderCatalog(t *testing.T) {
	out := renderCatalog(catalog.Default())
	assert.Contains(t, out, "ko-KR-Wavenet-d")
	assert.Contains(t, out, "빗소리, 모닥불 소리")
	assert.Contains(t, out, "세로형 쇼츠")
}

func TestHighlightJSON_PlainForNonTerminal(t *testing.T) {
	src := `{"manuscript": "옛날 옛적에"}`
	var buf bytes.Buffer
	assert.Equal(t, src, highlightJSON(src, &buf))
}

func TestDiagnose(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)

	cfg := &config.Config{OutputDir: dir + "/videos"}
	checks := diagnose(cfg, dir)

	byName := map[string]check{}
	for _, c := range checks {
		byName[c.name] = c
	}
	assert.True(t, byName["config"].warn)
	assert.False(t, byName["endpoint"].ok, "no endpoint configured")
	assert.True(t, byName["subtitles"].warn)
	assert.True(t, byName["output"].ok)
	assert.True(t, byName["catalog"].ok)
	assert.True(t, byName["hooks"].ok)

	var buf bytes.Buffer
	assert.Equal(t, 1, printChecks(&buf, checks))
	assert.Equal(t, len(checks), strings.Count(buf.String(), "\n"))

	cfg.Endpoint = "http://localhost:9000/generate"
	for _, c := range diagnose(cfg, dir) {
		if c.name == "endpoint" {
			assert.True(t, c.ok)
		}
	}
}
