package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// registerTools registers the wizard tools with the MCP server.
func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("list-options",
			mcp.WithDescription("List the narration voices, background music genres and video ratios, with the defaults used when a choice is omitted"),
		),
		s.handleListOptions,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("check-subtitles",
			mcp.WithDescription("Check whether a YouTube video has subtitles that can be used as a manuscript"),
			mcp.WithString("url", mcp.Required(), mcp.Description("YouTube video URL")),
		),
		s.handleCheckSubtitles,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("analyze-manuscript",
			mcp.WithDescription("Report character count, estimated duration, summary and chapters for a manuscript"),
			mcp.WithString("manuscript", mcp.Required(), mcp.Description("Story text")),
			mcp.WithString("source", mcp.Enum("text", "youtube"), mcp.Description("Where the manuscript came from (default: text)")),
		),
		s.handleAnalyzeManuscript,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("generate-video",
			mcp.WithDescription("Generate a story video from a manuscript. Omitted choices use the defaults from list-options. Blocks until the video is ready."),
			mcp.WithString("manuscript", mcp.Required(), mcp.Description("Story text, at least 100 characters")),
			mcp.WithString("source", mcp.Enum("text", "youtube"), mcp.Description("Where the manuscript came from (default: text)")),
			mcp.WithString("youtube_url", mcp.Description("Source video URL, required when source is youtube")),
			mcp.WithString("tts_voice", mcp.Description("Voice id")),
			mcp.WithString("bgm_genre", mcp.Description("Music genre id, or \"none\"")),
			mcp.WithString("bgm_type", mcp.Description("Variant within the genre")),
			mcp.WithString("video_ratio", mcp.Description("Ratio id such as 1536x1024")),
		),
		s.handleGenerateVideo,
	)
}
