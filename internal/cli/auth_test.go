package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAppearance(t *testing.T) {
	base := Appearance{SkinColor: 1, HairStyle: 1, HairColor: 1, ShirtColor: 1, PantsColor: 1, HatStyle: -1}

	tests := []struct {
		name    string
		pairs   []string
		want    Appearance
		wantErr string
	}{
		{
			name:  "single key",
			pairs: []string{"hat=2"},
			want:  Appearance{SkinColor: 1, HairStyle: 1, HairColor: 1, ShirtColor: 1, PantsColor: 1, HatStyle: 2},
		},
		{
			name:  "every key, case insensitive",
			pairs: []string{"Skin=3", "hair=0", "haircolor=7", "shirt=4", "pants=2", "hat=-1"},
			want:  Appearance{SkinColor: 3, HairStyle: 0, HairColor: 7, ShirtColor: 4, PantsColor: 2, HatStyle: -1},
		},
		{name: "missing equals", pairs: []string{"hat"}, wantErr: "expected key=value"},
		{name: "not a number", pairs: []string{"hat=big"}, wantErr: "not a number"},
		{name: "unknown key", pairs: []string{"shoes=1"}, wantErr: "unknown appearance key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAppearance(base, tt.pairs)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
