package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/colorprofile"
	"github.com/spf13/cobra"
	"github.com/storyreel/storyreel/internal/catalog"
	"github.com/storyreel/storyreel/internal/generation"
	"github.com/storyreel/storyreel/internal/logger"
	"github.com/storyreel/storyreel/internal/session"
)

var generateFlags struct {
	file       string
	youtubeURL string
	voice      string
	bgmGenre   string
	bgmType    string
	ratio      string
	dryRun     bool
	json       bool
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a video without the wizard",
	Long: `Generate a video from a manuscript file, or from the subtitles of a
YouTube video, in one step.

Choices that are not given use the catalog defaults. The request is sent
exactly once; a failure is reported and nothing is retried.

Examples:
  storyreel generate -f story.txt --voice ko-KR-Wavenet-a
  cat story.txt | storyreel generate -f - --bgm-genre nature --bgm-type 빗소리
  storyreel generate --youtube-url https://youtu.be/dQw4w9WgXcQ --dry-run`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&generateFlags.file, "file", "f", "", "Manuscript file, or - for stdin")
	generateCmd.Flags().StringVarP(&generateFlags.youtubeURL, "youtube-url", "y", "", "Use the subtitles of this YouTube video as the manuscript")
	generateCmd.Flags().StringVar(&generateFlags.voice, "voice", "", "Narration voice id (see 'storyreel catalog')")
	generateCmd.Flags().StringVar(&generateFlags.bgmGenre, "bgm-genre", "", "Background music genre id")
	generateCmd.Flags().StringVar(&generateFlags.bgmType, "bgm-type", "", "Track within the genre (default: the genre's first)")
	generateCmd.Flags().StringVar(&generateFlags.ratio, "ratio", "", "Video ratio id")
	generateCmd.Flags().BoolVar(&generateFlags.dryRun, "dry-run", false, "Print the request instead of sending it")
	generateCmd.Flags().BoolVar(&generateFlags.json, "json", false, "Print the result as JSON")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	text, source, err := readManuscript(ctx, e, cmd.InOrStdin())
	if err != nil {
		return err
	}

	choices, err := choicesFromFlags(e.catalog)
	if err != nil {
		return err
	}

	sess := session.New(e.catalog.Defaults())
	sess.Update(session.Analyze(text, source).Patch(text, source, generateFlags.youtubeURL))
	sess.Update(choices)
	for sess.Step() < session.StepProgress {
		if _, err := sess.Advance(); err != nil {
			return err
		}
	}

	req := generation.BuildRequest(sess.Selections())
	if generateFlags.dryRun {
		data, err := json.MarshalIndent(req, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), highlightJSON(string(data), cmd.OutOrStdout()))
		return nil
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Generating video (%s, %s, %s)...\n",
		e.catalog.VoiceName(req.TTSVoice),
		e.catalog.BGMLabel(req.BGMGenre, req.BGMType),
		e.catalog.RatioLabel(req.VideoRatio))

	res, err := e.generator(sess.ID()).Generate(ctx, sess.Selections())
	if err != nil {
		if kind := generation.KindOf(err); kind != "" {
			return fmt.Errorf("%s error: %w", kind, err)
		}
		return err
	}

	if generateFlags.json {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Video saved to: %s (%d bytes)\n", res.VideoRef, res.Size)
	return nil
}

// readManuscript returns the manuscript from --file, or from the subtitles of
// --youtube-url when no file is given.
func readManuscript(ctx context.Context, e *env, stdin io.Reader) (string, session.Source, error) {
	f := generateFlags
	switch {
	case f.file != "":
		var data []byte
		var err error
		if f.file == "-" {
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(f.file)
		}
		if err != nil {
			return "", "", fmt.Errorf("failed to read manuscript: %w", err)
		}
		source := session.SourceText
		if f.youtubeURL != "" {
			source = session.SourceYouTube
		}
		return strings.TrimSpace(string(data)), source, nil

	case f.youtubeURL != "":
		res, err := e.subtitles.Check(ctx, f.youtubeURL)
		if err != nil {
			return "", "", fmt.Errorf("subtitle check failed: %w", err)
		}
		if !res.Available {
			return "", "", fmt.Errorf("video %s has no usable subtitles", res.VideoID)
		}
		logger.Info("Using %d characters of subtitles from %s", len([]rune(res.Text)), res.VideoID)
		return res.Text, session.SourceYouTube, nil
	}
	return "", "", fmt.Errorf("no manuscript: use --file or --youtube-url")
}

// choicesFromFlags checks the option flags against the catalog.
func choicesFromFlags(c *catalog.Catalog) (session.Patch, error) {
	f := generateFlags
	var p session.Patch

	if f.voice != "" {
		if _, ok := c.Voice(f.voice); !ok {
			return p, fmt.Errorf("unknown voice %q", f.voice)
		}
		voice := f.voice
		p.TTSVoice = &voice
	}

	switch {
	case f.bgmGenre != "":
		genre, ok := c.Genre(f.bgmGenre)
		if !ok {
			return p, fmt.Errorf("unknown music genre %q", f.bgmGenre)
		}
		typ := f.bgmType
		if typ == "" {
			typ = genre.Types[0]
		}
		if !c.HasBGM(genre.ID, typ) {
			return p, fmt.Errorf("music genre %q has no type %q", genre.ID, typ)
		}
		p.BGMGenre = &genre.ID
		p.BGMType = &typ
	case f.bgmType != "":
		return p, fmt.Errorf("--bgm-type needs --bgm-genre")
	}

	if f.ratio != "" {
		if _, ok := c.Ratio(f.ratio); !ok {
			return p, fmt.Errorf("unknown video ratio %q", f.ratio)
		}
		ratio := f.ratio
		p.VideoRatio = &ratio
	}
	return p, nil
}

// highlightJSON colors source for w's terminal, or returns it unchanged when
// w is not a color terminal.
func highlightJSON(source string, w io.Writer) string {
	var formatter string
	switch colorprofile.Detect(w, os.Environ()) {
	case colorprofile.TrueColor:
		formatter = "terminal16m"
	case colorprofile.ANSI256:
		formatter = "terminal256"
	case colorprofile.ANSI:
		formatter = "terminal16"
	default:
		return source
	}

	lexer := lexers.Get("json")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	style := styles.Get("catppuccin-mocha")
	if style == nil {
		style = styles.Fallback
	}

	iterator, err := lexer.Tokenise(nil, source)
	if err != nil {
		return source
	}
	var buf bytes.Buffer
	if err := formatters.Get(formatter).Format(&buf, style, iterator); err != nil {
		return source
	}
	return strings.TrimRight(buf.String(), "\n")
}
