package domain

import (
	"regexp"
	"strings"
	"time"
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{1,64}$`)

// ValidAddress reports whether s looks like a Sui address or object id
func ValidAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// Profile is the on-chain developer identity owned by a wallet address
type Profile struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Username      string    `json:"username,omitempty"`
	Bio           string    `json:"bio,omitempty"`
	WalletAddress string    `json:"walletAddress,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt,omitempty"`
}

// Game is one showcased project owned by the same address as its profile
type Game struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Link        string   `json:"link"`
	Description string   `json:"description"`
	Image       string   `json:"image"`
	Platform    string   `json:"platform"`
	Tags        []string `json:"tags,omitempty"`
}

// GameDraft is a game the user has filled in but that has no id yet
type GameDraft struct {
	Name        string   `json:"name"`
	Link        string   `json:"link"`
	Description string   `json:"description"`
	Image       string   `json:"image"`
	Platform    string   `json:"platform"`
	Tags        []string `json:"tags,omitempty"`
}

// GamePatch carries the fields of a game update; nil fields are left untouched
type GamePatch struct {
	Name        *string  `json:"name,omitempty"`
	Link        *string  `json:"link,omitempty"`
	Description *string  `json:"description,omitempty"`
	Image       *string  `json:"image,omitempty"`
	Platform    *string  `json:"platform,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Apply returns a copy of g with the patch merged in
func (p GamePatch) Apply(g Game) Game {
	if p.Name != nil {
		g.Name = *p.Name
	}
	if p.Link != nil {
		g.Link = *p.Link
	}
	if p.Description != nil {
		g.Description = *p.Description
	}
	if p.Image != nil {
		g.Image = *p.Image
	}
	if p.Platform != nil {
		g.Platform = *p.Platform
	}
	if p.Tags != nil {
		g.Tags = append([]string(nil), p.Tags...)
	}
	return g
}

// WithID turns a draft into a game carrying the given id
func (d GameDraft) WithID(id string) Game {
	return Game{
		ID:          id,
		Name:        d.Name,
		Link:        d.Link,
		Description: d.Description,
		Image:       d.Image,
		Platform:    d.Platform,
		Tags:        append([]string(nil), d.Tags...),
	}
}

// SameContent reports whether two games carry the same user-visible fields.
// Ids are ignored: a staged game gets a local id, the chain assigns its own.
func (g Game) SameContent(other Game) bool {
	return g.Name == other.Name &&
		g.Link == other.Link &&
		g.Description == other.Description &&
		g.Image == other.Image &&
		g.Platform == other.Platform
}

// GameDecodeStatus tags the outcome of decoding one remote game record
type GameDecodeStatus string

const (
	GameDecodeOK      GameDecodeStatus = "ok"
	GameDecodeSkipped GameDecodeStatus = "skipped"
)

// DecodedGame is the per-record result of reading a game object
type DecodedGame struct {
	Status   GameDecodeStatus `json:"status"`
	ObjectID string           `json:"objectId"`
	Game     Game             `json:"game,omitempty"`
	Reason   string           `json:"reason,omitempty"`
}

// GenerateUsername derives a URL-friendly username from a display name
func GenerateUsername(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}
