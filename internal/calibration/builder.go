package calibration

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"decouple-tool/internal/apperr"
	"decouple-tool/internal/raster"
	"decouple-tool/pkg/colorutil"

	"github.com/rs/zerolog"
)

// RequiredImages is the number of calibration images, one per channel.
const RequiredImages = 3

// CachePolicy decides what happens when a cached matrix exists.
type CachePolicy int

const (
	// AskCaller prompts before reusing the cache.
	AskCaller CachePolicy = iota
	// UseCache reuses the cache without asking.
	UseCache
	// Recompute ignores the cache and overwrites it.
	Recompute
)

func (p CachePolicy) String() string {
	switch p {
	case UseCache:
		return "use"
	case Recompute:
		return "recompute"
	default:
		return "ask"
	}
}

// ParseCachePolicy parses "ask", "use" or "recompute".
func ParseCachePolicy(s string) (CachePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ask":
		return AskCaller, nil
	case "use":
		return UseCache, nil
	case "recompute":
		return Recompute, nil
	}
	return AskCaller, &apperr.ConfigError{Field: "cache", Reason: fmt.Sprintf("unknown policy %q (want ask, use or recompute)", s)}
}

// PromptKind identifies what a confirmation prompt is about.
type PromptKind int

const (
	// PromptReuseCache asks whether to load an existing cached matrix.
	PromptReuseCache PromptKind = iota
	// PromptAssignment asks the user to accept the proposed channel roles.
	PromptAssignment
)

// Prompt is a yes/no question put to the caller.
type Prompt struct {
	Kind    PromptKind
	Title   string
	Message string
}

// Confirmer answers prompts. Confirm blocks until the caller decides or
// ctx is done, in which case it returns an error.
type Confirmer interface {
	Confirm(ctx context.Context, p Prompt) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, p Prompt) (bool, error)

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(ctx context.Context, p Prompt) (bool, error) {
	return f(ctx, p)
}

// Assignment records which calibration image was chosen for each channel.
type Assignment struct {
	Files   [3]string
	Vectors [3]ChannelVector
	Roles   [3]int
}

// Proposal renders the assignment for the confirmation prompt.
func (a Assignment) Proposal() string {
	var sb strings.Builder
	sb.WriteString("Proposed channel assignment (mean R, G, B):\n")
	for c, idx := range a.Roles {
		fmt.Fprintf(&sb, "  %s <- %s %s\n", colorutil.ChannelNames[c], filepath.Base(a.Files[idx]), a.Vectors[idx])
	}
	sb.WriteString("\nUse this assignment?")
	return sb.String()
}

// Distinct reports whether every channel got a different image.
func (a Assignment) Distinct() bool {
	return a.Roles[0] != a.Roles[1] && a.Roles[0] != a.Roles[2] && a.Roles[1] != a.Roles[2]
}

// Calibration is the result of a Build.
type Calibration struct {
	Matrix     Matrix
	FromCache  bool
	CachePath  string
	Assignment *Assignment
}

// Builder derives the correction matrix for a calibration folder.
type Builder struct {
	BlackLevel float64
	Policy     CachePolicy
	// Confirmer answers prompts; nil accepts everything.
	Confirmer Confirmer
	Logger    zerolog.Logger
	// OnImage is called before each calibration image is sampled.
	OnImage func(name string)
}

// NewBuilder creates a Builder with the given policy and confirmer.
func NewBuilder(policy CachePolicy, confirmer Confirmer, logger zerolog.Logger) *Builder {
	return &Builder{
		Policy:    policy,
		Confirmer: confirmer,
		Logger:    logger,
	}
}

// Build returns the correction matrix for dir, from the cache when the
// policy allows it, otherwise by sampling the three calibration images.
// A freshly derived matrix is written back to the cache.
func (b *Builder) Build(ctx context.Context, dir string) (*Calibration, error) {
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	cache := NewCache(dir)
	if m, ok, err := b.tryCache(ctx, cache); err != nil {
		return nil, err
	} else if ok {
		return &Calibration{Matrix: m, FromCache: true, CachePath: cache.Path}, nil
	}

	files, err := raster.ListImages(dir, nil)
	if err != nil {
		return nil, err
	}
	if len(files) != RequiredImages {
		return nil, &apperr.CalibrationCountError{Dir: dir, Expected: RequiredImages, Found: len(files)}
	}

	a := &Assignment{}
	for i, path := range files {
		if err := checkCancelled(ctx); err != nil {
			return nil, err
		}
		if b.OnImage != nil {
			b.OnImage(filepath.Base(path))
		}
		buf, err := raster.Load(path)
		if err != nil {
			return nil, err
		}
		a.Files[i] = path
		a.Vectors[i] = SampleROI(buf, b.BlackLevel)
		b.Logger.Debug().
			Str("file", filepath.Base(path)).
			Str("mean", a.Vectors[i].String()).
			Msg("sampled calibration image")
	}

	a.Roles = Assign(a.Vectors)
	if !a.Distinct() {
		b.Logger.Warn().Ints("roles", a.Roles[:]).Msg("one image dominates several channels")
	}

	ok, err := b.confirm(ctx, Prompt{Kind: PromptAssignment, Title: "Confirm channel assignment", Message: a.Proposal()})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.ErrDeclined
	}

	m, err := Derive(Observation(a.Vectors, a.Roles))
	if err != nil {
		return nil, err
	}
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}
	if err := cache.Save(m); err != nil {
		return nil, err
	}
	b.Logger.Info().Str("cache", cache.Path).Msg("correction matrix saved")

	return &Calibration{Matrix: m, CachePath: cache.Path, Assignment: a}, nil
}

// tryCache loads the cached matrix when it exists and the policy allows it.
func (b *Builder) tryCache(ctx context.Context, cache *Cache) (Matrix, bool, error) {
	modTime, exists := cache.Stat()
	if !exists {
		return Matrix{}, false, nil
	}

	switch b.Policy {
	case Recompute:
		return Matrix{}, false, nil
	case AskCaller:
		ok, err := b.confirm(ctx, Prompt{
			Kind:  PromptReuseCache,
			Title: "Cached calibration found",
			Message: fmt.Sprintf("Found an existing correction matrix:\nModified: %s\n\nUse it?",
				modTime.Format(time.ANSIC)),
		})
		if err != nil {
			return Matrix{}, false, err
		}
		if !ok {
			return Matrix{}, false, nil
		}
	}

	m, err := cache.Load()
	if err != nil {
		b.Logger.Warn().Err(err).Msg("cached matrix unreadable, recomputing")
		return Matrix{}, false, nil
	}
	b.Logger.Info().Str("cache", cache.Path).Msg("using cached correction matrix")
	return m, true, nil
}

func (b *Builder) confirm(ctx context.Context, p Prompt) (bool, error) {
	if b.Confirmer == nil {
		return true, nil
	}
	ok, err := b.Confirmer.Confirm(ctx, p)
	if err != nil {
		if ctx.Err() != nil {
			return false, apperr.ErrCancelled
		}
		return false, err
	}
	if err := checkCancelled(ctx); err != nil {
		return false, err
	}
	return ok, nil
}

func checkCancelled(ctx context.Context) error {
	if ctx.Err() != nil {
		return apperr.ErrCancelled
	}
	return nil
}
