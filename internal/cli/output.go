package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to stdout
func NewOutput(format string) *Output {
	return &Output{format: format, w: os.Stdout}
}

// NewOutputTo creates an Output writing to w
func NewOutputTo(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Profile:
		o.printProfile(v)
	case AuthResult:
		o.printAuthResult(v)
	case OnlineResult:
		o.printOnlineResult(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Position response type
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Appearance response type
type Appearance struct {
	SkinColor  int `json:"skinColor"`
	HairStyle  int `json:"hairStyle"`
	HairColor  int `json:"hairColor"`
	ShirtColor int `json:"shirtColor"`
	PantsColor int `json:"pantsColor"`
	HatStyle   int `json:"hatStyle"`
}

// Profile response type (matches API)
type Profile struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	DisplayName  string     `json:"display_name"`
	Appearance   Appearance `json:"appearance"`
	LastPosition *Position  `json:"last_position"`
	CreatedAt    time.Time  `json:"created_at"`
}

// AuthResult combines profile and token
type AuthResult struct {
	Profile   Profile   `json:"profile"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// OnlinePlayer is one entry of the online list
type OnlinePlayer struct {
	ID          string     `json:"id"`
	IdentityID  string     `json:"identityId"`
	DisplayName string     `json:"displayName"`
	Appearance  Appearance `json:"appearance"`
	Position    Position   `json:"position"`
	Facing      string     `json:"facing"`
	IsMoving    bool       `json:"isMoving"`
}

// OnlineResult response type
type OnlineResult struct {
	Count   int            `json:"count"`
	Players []OnlinePlayer `json:"players"`
}

// HealthResult response type
type HealthResult struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

func (o *Output) printProfile(p Profile) {
	fmt.Fprintf(o.w, "Profile: %s (%s)\n", p.DisplayName, p.ID)
	fmt.Fprintf(o.w, "Username: %s\n", p.Username)
	a := p.Appearance
	fmt.Fprintf(o.w, "Appearance: skin=%d hair=%d/%d shirt=%d pants=%d hat=%d\n",
		a.SkinColor, a.HairStyle, a.HairColor, a.ShirtColor, a.PantsColor, a.HatStyle)
	if p.LastPosition != nil {
		fmt.Fprintf(o.w, "Last position: (%.0f, %.0f)\n", p.LastPosition.X, p.LastPosition.Y)
	} else {
		fmt.Fprintln(o.w, "Last position: never connected")
	}
}

func (o *Output) printAuthResult(a AuthResult) {
	o.printProfile(a.Profile)
	fmt.Fprintf(o.w, "Token: %s\n", a.Token)
	fmt.Fprintf(o.w, "Expires: %s\n", a.ExpiresAt.Format(time.DateTime))
}

func (o *Output) printOnlineResult(r OnlineResult) {
	fmt.Fprintf(o.w, "Online (%d):\n", r.Count)
	for _, p := range r.Players {
		state := "idle"
		if p.IsMoving {
			state = "moving"
		}
		fmt.Fprintf(o.w, "  - %s [%s] at (%.0f, %.0f) facing %s, %s\n",
			p.DisplayName, p.ID, p.Position.X, p.Position.Y, p.Facing, state)
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Fprintf(o.w, "Status: %s\n", h.Status)
}
