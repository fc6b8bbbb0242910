package indexer

import (
	"context"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/chunker"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/vectorindex"
)

// ProfileSections is the text of a professional-network profile.
type ProfileSections struct {
	About      string `json:"about"`
	Experience string `json:"experience"`
	Skills     string `json:"skills"`
}

// Text joins the non-empty sections with blank lines.
func (p ProfileSections) Text() string {
	return joinNonEmpty("\n\n", p.About, p.Experience, p.Skills)
}

// Repository is a code repository summary as returned by the hosting API.
type Repository struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Language    string   `json:"language,omitempty"`
	Topics      []string `json:"topics,omitempty"`
	Readme      string   `json:"readme,omitempty"`
}

// Text renders the repository as labelled lines, with the README cut to
// readmeLimit runes.
func (r Repository) Text(readmeLimit int) string {
	lines := []string{"Repository: " + r.Name}
	if r.Description != "" {
		lines = append(lines, "Description: "+r.Description)
	}
	if r.Language != "" {
		lines = append(lines, "Primary language: "+r.Language)
	}
	if len(r.Topics) > 0 {
		lines = append(lines, "Topics: "+strings.Join(r.Topics, ", "))
	}
	if r.Readme != "" {
		lines = append(lines, "README:\n"+chunker.Truncate(r.Readme, readmeLimit))
	}
	return strings.Join(lines, "\n")
}

// IndexProfile replaces the owner's profile chunks. The profile collection
// may hold other sources, so only chunks tagged with the profile source are
// purged.
func (e *Engine) IndexProfile(ctx context.Context, owner string, profile ProfileSections) (int, error) {
	text := profile.Text()
	if strings.TrimSpace(text) == "" {
		return e.replace(ctx, owner, SourceLinkedIn, nil)
	}
	return e.Index(ctx, owner, SourceLinkedIn, text)
}

// IndexRepositories replaces the owner's repository chunks. Each repository
// is chunked on its own and every chunk is tagged with its repository name;
// chunk indexes run across the whole call.
func (e *Engine) IndexRepositories(ctx context.Context, owner string, repos []Repository) (int, error) {
	var pieces []piece
	for _, r := range repos {
		for _, c := range e.repoChunker.Split(r.Text(e.readmeLimit)) {
			pieces = append(pieces, piece{
				idSource: string(SourceGitHub) + "_" + r.Name,
				text:     c,
				extra:    map[string]string{vectorindex.KeyRepoName: r.Name},
			})
		}
	}
	return e.replace(ctx, owner, SourceGitHub, pieces)
}

// Count reports how many chunks the owner has for a source.
func (e *Engine) Count(ctx context.Context, owner string, source SourceKind) (int, error) {
	f := vectorindex.OwnerFilter(owner).With(vectorindex.KeySource, string(source))
	return e.store.Count(ctx, e.Collection(source), f)
}
