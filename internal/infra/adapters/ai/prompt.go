package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"stock-metadata-generator/internal/domain"
	"stock-metadata-generator/internal/domain/model"
	"stock-metadata-generator/internal/domain/ports/adapter"
)

// BuildPrompt composes the system and task instructions shared by all
// providers. Clauses are only emitted when their toggle is on; the custom
// instruction always comes last.
func BuildPrompt(pc model.PlatformConfig, s model.GenerationSettings) (system, task string) {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(pc.Prompt))
	b.WriteString("\n")

	clause := func(text string) {
		b.WriteString("- ")
		b.WriteString(text)
		b.WriteString("\n")
	}
	if s.Silhouette {
		clause("The subject is shown as a silhouette; mention it in the title and keywords.")
	}
	if s.WhiteBackground {
		clause("The asset is isolated on a white background; include \"white background\" and \"isolated\".")
	}
	if s.TransparentBackground {
		clause("The asset has a transparent background; include \"transparent background\" and \"png\".")
	}
	if s.SingleWordKeywords {
		clause("Every keyword must be a single word. Do not use phrases.")
	} else {
		clause("Keywords may be single words or short phrases of at most three words.")
	}
	if words := prohibitedWords(s); len(words) > 0 {
		clause("Never use these words anywhere: " + strings.Join(words, ", ") + ".")
	}
	if s.CustomPromptEnabled && strings.TrimSpace(s.CustomPrompt) != "" {
		clause(strings.TrimSpace(s.CustomPrompt))
	}
	system = strings.TrimRight(b.String(), "\n")

	task = fmt.Sprintf(
		"Analyze the attached asset and write %s metadata.\n"+
			"Title: %d to %d words, between %d and %d characters.\n"+
			"Description: %d to %d words, at most %d characters.\n"+
			"Keywords: %d to %d entries, most relevant first.\n"+
			`Respond with JSON only: {"title": string, "description": string, "keywords": [string]}.`,
		pc.Name,
		s.TitleWordsMin, s.TitleWordsMax, pc.TitleMin, pc.TitleMax,
		s.DescWordsMin, s.DescWordsMax, pc.DescMax,
		s.KeywordsMin, s.KeywordsMax,
	)
	return system, task
}

func prohibitedWords(s model.GenerationSettings) []string {
	if !s.ProhibitedWordsEnabled {
		return nil
	}
	out := make([]string, 0, len(s.ProhibitedWords))
	for _, w := range s.ProhibitedWords {
		if w = strings.TrimSpace(w); w != "" {
			out = append(out, w)
		}
	}
	return out
}

// DecodeMetadata parses a model reply into Metadata. Markdown code fences are
// tolerated since some models wrap JSON in them even in JSON mode.
func DecodeMetadata(text string) (model.Metadata, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Metadata{}, domain.ErrEmptyResponse
	}
	text = stripFences(text)

	var payload struct {
		Title       *string  `json:"title"`
		Description *string  `json:"description"`
		Keywords    []string `json:"keywords"`
	}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return model.Metadata{}, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	if payload.Title == nil || strings.TrimSpace(*payload.Title) == "" {
		return model.Metadata{}, fmt.Errorf("%w: missing title", domain.ErrMalformedResponse)
	}
	if len(payload.Keywords) == 0 {
		return model.Metadata{}, fmt.Errorf("%w: missing keywords", domain.ErrMalformedResponse)
	}
	md := model.Metadata{Title: *payload.Title, Keywords: payload.Keywords}
	if payload.Description != nil {
		md.Description = *payload.Description
	}
	return md, nil
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Preparer turns an upload into the bytes sent for analysis, e.g. by
// downscaling large rasters.
type Preparer interface {
	PrepareForAnalysis(f model.File) model.File
}

type mediaCaps struct {
	documents bool // .ai files are PDF-compatible
	video     bool
}

type media struct {
	mimeType string
	data     []byte
}

var rasterMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".ai":   "application/pdf",
}

// resolveMedia picks the analysis file and checks the provider can read it.
func resolveMedia(req adapter.GenerateRequest, caps mediaCaps, prep Preparer) (media, error) {
	f := req.AnalysisFile()
	switch {
	case f.IsRaster():
		if prep != nil {
			f = prep.PrepareForAnalysis(f)
		}
		mt := f.MIMEType
		if mt == "" {
			mt = rasterMIME[f.Ext()]
		}
		return media{mimeType: mt, data: f.Data}, nil
	case f.IsVector():
		if caps.documents && f.Ext() == ".ai" {
			return media{mimeType: rasterMIME[".ai"], data: f.Data}, nil
		}
		return media{}, fmt.Errorf("%w: %s has no raster preview", domain.ErrUnsupportedMedia, f.Name)
	case f.IsVideo():
		if caps.video {
			return media{mimeType: rasterMIME[f.Ext()], data: f.Data}, nil
		}
		return media{}, fmt.Errorf("%w: video %s", domain.ErrUnsupportedMedia, f.Name)
	}
	return media{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedMedia, f.Name)
}
