package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"storyreel-server/pkg/zip"
)

type exportManifest struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Style       string              `json:"style,omitempty"`
	AspectRatio string              `json:"aspect_ratio,omitempty"`
	ExportedAt  time.Time           `json:"exported_at"`
	Scenes      []exportManifestRow `json:"scenes"`
}

type exportManifestRow struct {
	Index    int    `json:"index"`
	Prompt   string `json:"prompt"`
	Status   string `json:"status"`
	ImageURL string `json:"image_url,omitempty"`
	VideoURL string `json:"video_url,omitempty"`
}

// StoryboardExport packages the open storyboard into a zip: a JSON manifest
// referencing every resolved artifact plus per-scene prompt files. Artifact
// bytes stay with the provider CDN; the archive carries their URLs.
func (a *App) StoryboardExport(w http.ResponseWriter, r *http.Request) {
	s, ok := a.currentSession(w, r)
	if !ok {
		return
	}
	orch, ok := s.Orchestrator()
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "no open storyboard")
		return
	}
	sb := orch.Board().Snapshot()

	manifest := exportManifest{
		ID:          sb.ID,
		Title:       sb.Title,
		Style:       sb.Style,
		AspectRatio: sb.AspectRatio,
		ExportedAt:  time.Now().UTC(),
	}
	assets := make([]zip.Asset, 0, len(sb.Scenes)+1)
	for _, sc := range sb.Scenes {
		manifest.Scenes = append(manifest.Scenes, exportManifestRow{
			Index:    sc.Index,
			Prompt:   sc.Prompt,
			Status:   string(sc.Status),
			ImageURL: sc.ImageURL,
			VideoURL: sc.VideoURL,
		})
		assets = append(assets, zip.Asset{
			Filename: fmt.Sprintf("scenes/%02d.txt", sc.Index),
			MIME:     "text/plain",
			Data:     []byte(sc.Prompt),
		})
	}
	raw, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to build manifest")
		return
	}
	assets = append([]zip.Asset{{Filename: "storyboard.json", MIME: "application/json", Data: raw}}, assets...)

	archive, err := zip.ArchiveAssets(assets)
	if err != nil {
		a.Logger.Error().Err(err).Msg("export archive failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to build archive")
		return
	}

	if a.Exports != nil {
		key := fmt.Sprintf("exports/%s/%s.zip", s.User().ID, sb.ID)
		if _, err := a.Exports.Write(r.Context(), key, archive); err != nil {
			a.Logger.Warn().Err(err).Str("key", key).Msg("export persist failed")
		}
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sb.ID+".zip"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}
