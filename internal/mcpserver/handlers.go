package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/storyreel/storyreel/internal/catalog"
	"github.com/storyreel/storyreel/internal/generation"
	"github.com/storyreel/storyreel/internal/logger"
	"github.com/storyreel/storyreel/internal/session"
	"github.com/storyreel/storyreel/internal/subtitles"
)

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// stringArg returns args[key] when it is a string, "" otherwise.
func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func sourceArg(args map[string]any) (session.Source, error) {
	switch src := session.Source(stringArg(args, "source")); src {
	case "":
		return session.SourceText, nil
	case session.SourceText, session.SourceYouTube:
		return src, nil
	default:
		return "", fmt.Errorf("source must be \"text\" or \"youtube\", got %q", src)
	}
}

type optionsResult struct {
	Voices   []catalog.Voice  `json:"voices"`
	Genres   []catalog.Genre  `json:"bgm_genres"`
	Ratios   []catalog.Ratio  `json:"video_ratios"`
	Defaults catalog.Defaults `json:"defaults"`
}

func (s *Server) handleListOptions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c := s.deps.Catalog
	return jsonResult(optionsResult{
		Voices:   c.Voices,
		Genres:   c.Genres,
		Ratios:   c.Ratios,
		Defaults: c.Defaults(),
	})
}

func (s *Server) handleCheckSubtitles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url := stringArg(request.GetArguments(), "url")
	if url == "" {
		return mcp.NewToolResultError("missing 'url' parameter"), nil
	}

	res, err := s.deps.Subtitles.Check(ctx, url)
	switch {
	case err == nil:
		return jsonResult(res)
	case errors.Is(err, subtitles.ErrNotConfigured):
		return jsonResult(map[string]any{
			"video_id":  res.VideoID,
			"available": false,
			"reason":    err.Error(),
		})
	default:
		return mcp.NewToolResultError(err.Error()), nil
	}
}

type analysisResult struct {
	WordCount         int      `json:"word_count"`
	EstimatedDuration string   `json:"estimated_duration"`
	Summary           string   `json:"summary"`
	Chapters          []string `json:"chapters"`
	Ready             bool     `json:"ready"`
}

func (s *Server) handleAnalyzeManuscript(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	text := stringArg(args, "manuscript")
	if text == "" {
		return mcp.NewToolResultError("missing 'manuscript' parameter"), nil
	}
	source, err := sourceArg(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	a := session.Analyze(text, source)
	return jsonResult(analysisResult{
		WordCount:         a.WordCount,
		EstimatedDuration: a.EstimatedDuration,
		Summary:           a.Summary,
		Chapters:          a.Chapters,
		Ready:             session.ManuscriptReady(text),
	})
}

// choicesPatch validates the optional option arguments against the catalog.
func (s *Server) choicesPatch(args map[string]any) (session.Patch, error) {
	c := s.deps.Catalog
	var p session.Patch

	if id := stringArg(args, "tts_voice"); id != "" {
		if _, ok := c.Voice(id); !ok {
			return p, fmt.Errorf("unknown voice %q", id)
		}
		p.TTSVoice = &id
	}

	genreID := stringArg(args, "bgm_genre")
	typ := stringArg(args, "bgm_type")
	if genreID != "" {
		genre, ok := c.Genre(genreID)
		if !ok {
			return p, fmt.Errorf("unknown music genre %q", genreID)
		}
		if typ == "" {
			typ = genre.Types[0]
		}
		if !slices.Contains(genre.Types, typ) {
			return p, fmt.Errorf("music genre %q has no type %q", genreID, typ)
		}
		p.BGMGenre = &genreID
		p.BGMType = &typ
	} else if typ != "" {
		return p, fmt.Errorf("bgm_type needs bgm_genre")
	}

	if id := stringArg(args, "video_ratio"); id != "" {
		if _, ok := c.Ratio(id); !ok {
			return p, fmt.Errorf("unknown video ratio %q", id)
		}
		p.VideoRatio = &id
	}
	return p, nil
}

type generateResult struct {
	Session   string         `json:"session"`
	AttemptID string         `json:"attempt_id"`
	Video     string         `json:"video"`
	Size      int            `json:"size"`
	Voice     string         `json:"voice"`
	BGM       string         `json:"bgm"`
	Ratio     string         `json:"ratio"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// handleGenerateVideo walks a fresh session through the wizard with the given
// choices and submits it once.
func (s *Server) handleGenerateVideo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	text := stringArg(args, "manuscript")
	if text == "" {
		return mcp.NewToolResultError("missing 'manuscript' parameter"), nil
	}
	source, err := sourceArg(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	youtubeURL := stringArg(args, "youtube_url")
	if source == session.SourceYouTube && youtubeURL == "" {
		return mcp.NewToolResultError("youtube_url is required when source is youtube"), nil
	}
	choices, err := s.choicesPatch(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	sess := session.New(s.deps.Catalog.Defaults())
	sess.Update(session.Analyze(text, source).Patch(text, source, youtubeURL))
	sess.Update(choices)
	for sess.Step() < session.StepProgress {
		if _, err := sess.Advance(); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	var observers []generation.Observer
	if s.deps.Observers != nil {
		observers = s.deps.Observers(sess.ID())
	}
	gen := generation.NewGenerator(s.deps.Submitter, s.deps.Store, observers...)

	logger.Info("MCP generate-video for session %s", sess.ID())
	res, err := gen.Generate(ctx, sess.Selections())
	if err != nil {
		if kind := generation.KindOf(err); kind != "" {
			return mcp.NewToolResultError(fmt.Sprintf("%s error: %v", kind, err)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}

	ref := res.VideoRef
	sess.Update(session.Patch{VideoURL: &ref})
	if _, err := sess.Advance(); err != nil {
		logger.Warn("Session %s could not complete: %v", sess.ID(), err)
	}

	sel := sess.Selections()
	c := s.deps.Catalog
	return jsonResult(generateResult{
		Session:   sess.ID(),
		AttemptID: res.AttemptID,
		Video:     res.VideoRef,
		Size:      res.Size,
		Voice:     c.VoiceName(sel.TTSVoice),
		BGM:       c.BGMLabel(sel.BGMGenre, sel.BGMType),
		Ratio:     c.RatioLabel(sel.VideoRatio),
		Metadata:  res.Metadata,
	})
}
