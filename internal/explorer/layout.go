package explorer

import (
	"math"
	"math/rand/v2"

	"github.com/gamedev-cards/internal/domain"
)

// Canvas bounds, in percent of the viewport. The galaxy spans 200% x 200%.
const (
	CanvasMin = 10.0
	CanvasMax = 190.0
)

const (
	baseSize          = 35.0
	levelFactor       = 0.8
	levelCap          = 40.0
	gamesFactor       = 2.5
	gamesCap          = 25.0
	minSeparation     = 12.0
	separationDiv     = 12.0
	gridAttempts      = 10
	maxAttempts       = 100
	gridJitter        = 30.0
	canvasSpan        = CanvasMax - CanvasMin
	maxRotation       = 360.0
	maxAnimationDelay = 3.0
)

var palette = []string{
	"from-purple-500 to-pink-500",
	"from-blue-500 to-cyan-500",
	"from-green-500 to-emerald-500",
	"from-orange-500 to-red-500",
	"from-yellow-500 to-orange-500",
	"from-pink-500 to-rose-500",
	"from-indigo-500 to-purple-500",
	"from-teal-500 to-green-500",
}

// Planet is a directory entry placed on the galaxy canvas
type Planet struct {
	domain.DirectoryEntry
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	Size           float64 `json:"size"`
	Color          string  `json:"color"`
	Rotation       float64 `json:"rotation"`
	AnimationDelay float64 `json:"animationDelay"`
}

// PlanetSize grows with level and game count, each contribution saturating
func PlanetSize(level, gameCount int) float64 {
	return baseSize +
		math.Min(float64(level)*levelFactor, levelCap) +
		math.Min(float64(gameCount)*gamesFactor, gamesCap)
}

// PlanetColor picks the palette entry for a position in the list
func PlanetColor(index int) string {
	return palette[index%len(palette)]
}

// RequiredDistance is the minimum centre distance between two planets
func RequiredDistance(sizeA, sizeB float64) float64 {
	return minSeparation + (sizeA+sizeB)/separationDiv
}

func fits(x, y, size float64, placed []Planet) bool {
	for _, p := range placed {
		if math.Hypot(x-p.X, y-p.Y) < RequiredDistance(size, p.Size) {
			return false
		}
	}
	return true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Layout places every entry on the canvas in order. The first attempts jitter
// around the entry's grid cell, later ones are uniform over the canvas; after
// the attempt budget the last candidate is kept even if it overlaps.
func Layout(entries []domain.DirectoryEntry, rng *rand.Rand) []Planet {
	planets := make([]Planet, 0, len(entries))
	if len(entries) == 0 {
		return planets
	}

	grid := int(math.Ceil(math.Sqrt(float64(len(entries)))))
	cell := canvasSpan / float64(grid)

	for i, e := range entries {
		size := PlanetSize(e.Level, e.GameCount)
		gridX := float64(i%grid)*cell + CanvasMin
		gridY := float64(i/grid)*cell + CanvasMin

		var x, y float64
		for attempt := 0; attempt < maxAttempts; attempt++ {
			if attempt < gridAttempts {
				x = gridX + (rng.Float64()-0.5)*gridJitter
				y = gridY + (rng.Float64()-0.5)*gridJitter
			} else {
				x = rng.Float64()*canvasSpan + CanvasMin
				y = rng.Float64()*canvasSpan + CanvasMin
			}
			x = clamp(x, CanvasMin, CanvasMax)
			y = clamp(y, CanvasMin, CanvasMax)
			if fits(x, y, size, planets) {
				break
			}
		}

		planets = append(planets, Planet{
			DirectoryEntry: e,
			X:              x,
			Y:              y,
			Size:           size,
			Color:          PlanetColor(i),
			Rotation:       rng.Float64() * maxRotation,
			AnimationDelay: rng.Float64() * maxAnimationDelay,
		})
	}
	return planets
}

// NewRand returns a deterministic source for a layout seed
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
