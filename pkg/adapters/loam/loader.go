package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"
	"github.com/zxsted/dialogmanager/pkg/catalog"
	"github.com/zxsted/dialogmanager/pkg/domain"
)

// Loader reads an action catalog stored as one document per action in a
// Loam repository. Frontmatter (or the JSON/YAML body) carries the action
// definition; the Markdown body is the default reply.
type Loader struct {
	Repo *loam.TypedRepository[catalog.Definition]
	opts []catalog.CompileOption
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[catalog.Definition], opts ...catalog.CompileOption) *Loader {
	return &Loader{
		Repo: repo,
		opts: opts,
	}
}

// Open initializes a read-only, strict Loam repository rooted at dir.
func Open(dir string, opts ...catalog.CompileOption) (*Loader, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", dir, err)
	}
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open loam repository %s: %w", absPath, err)
	}
	return New(loam.NewTypedRepository[catalog.Definition](repo), opts...), nil
}

// Definition retrieves a single action definition by document ID.
func (l *Loader) Definition(ctx context.Context, id string) (catalog.Definition, error) {
	doc, err := l.Repo.Get(ctx, id)
	if err != nil {
		return catalog.Definition{}, fmt.Errorf("loam get failed for %s: %w", id, err)
	}
	return normalize(doc.ID, doc.Data, doc.Content), nil
}

// Definitions lists every action definition, sorted by name.
func (l *Loader) Definitions(ctx context.Context) ([]catalog.Definition, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	defs := make([]catalog.Definition, 0, len(docs))

	for _, doc := range docs {
		def := normalize(doc.ID, doc.Data, doc.Content)

		if existingPath, ok := seen[def.Name]; ok {
			return nil, &domain.ConfigurationError{
				Action: def.Name,
				Reason: fmt.Sprintf("collision detected: defined in both '%s' and '%s'", existingPath, doc.ID),
			}
		}
		seen[def.Name] = doc.ID
		defs = append(defs, def)
	}

	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs, nil
}

// Actions implements ports.ActionSource.
func (l *Loader) Actions(ctx context.Context) ([]*domain.Action, error) {
	defs, err := l.Definitions(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.CompileAll(defs, l.opts...)
}

// Watch implements ports.Watchable.
func (l *Loader) Watch(ctx context.Context) (<-chan string, error) {
	events, err := l.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- trimExtension(evt.ID):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}

// normalize fills the name from the document ID and the replies from the
// document body when the frontmatter omits them.
func normalize(docID string, def catalog.Definition, content string) catalog.Definition {
	if def.Name == "" {
		def.Name = docID
	}
	def.Name = trimExtension(def.Name)

	if def.Replies == nil {
		if body := strings.TrimSpace(content); body != "" {
			def.Replies = body
		}
	}
	return def
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}
