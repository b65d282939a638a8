package matching

import "testing"

func TestCleanName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Pikachu V (Full Art)", "Pikachu"},
		{"Charizard VMAX", "Charizard"},
		{"Mewtwo GX", "Mewtwo"},
		{"Rayquaza VSTAR", "Rayquaza"},
		{"Charizard ex - 199/165", "Charizard"},
		{"Gengar LV.X", "Gengar"},
		{"Infernape LV. 55", "Infernape"},
		{"Typhlosion Prime", "Typhlosion"},
		{"Greninja BREAK", "Greninja"},
		{"M Rayquaza EX", "M Rayquaza"},
		{"Dark Raichu (1st Edition)", "Dark Raichu"},
		{"Mewtwo-EX", "Mewtwo"},
		{"Pikachu-GX", "Pikachu"},
		{"Lugia - GX", "Lugia"},
		{"Zekrom", "Zekrom"},
		{"Latias", "Latias"},
		{"Ho-Oh", "Ho-Oh"},
		{"Nidoran-M", "Nidoran-M"},
		{"Alakazam", "Alakazam"},
		{"Professor's Research", "Professor's Research"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanName(tt.name); got != tt.want {
				t.Errorf("CleanName(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestExtractNumber(t *testing.T) {
	tests := []struct {
		number string
		want   string
	}{
		{"002/086", "2"},
		{"25", "25"},
		{"000", "0"},
		{" 7 ", "7"},
		{"58a", "58"},
		{"SWSH001", "swsh001"},
		{"TG05/TG30", "tg05"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := ExtractNumber(tt.number); got != tt.want {
			t.Errorf("ExtractNumber(%q) = %q, want %q", tt.number, got, tt.want)
		}
	}
}

func TestNumberFromName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Pikachu - 025/165", "025/165"},
		{"Pikachu 025/165", "025/165"},
		{"025/165 Pikachu", "025/165"},
		{"Pikachu 25", "25"},
		{"Porygon2", ""},
		{"Pikachu", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NumberFromName(tt.name); got != tt.want {
			t.Errorf("NumberFromName(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestArtistsMatch(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"Mitsuhiro Arita", "mitsuhiro  arita ", true},
		{"", "", true},
		{"  ", "", true},
		{"Ken Sugimori", "", false},
		{"", "Ken Sugimori", false},
		{"5ban Graphics", "Kagemaru Himeno", false},
	}

	for _, tt := range tests {
		if got := ArtistsMatch(tt.a, tt.b); got != tt.want {
			t.Errorf("ArtistsMatch(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestFoldText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Pokémon", "pokemon"},
		{"Flabébé", "flabebe"},
		{"Nidoran♀", "nidoran f"},
		{"Nidoran♂", "nidoran m"},
		{"Farfetch’d", "farfetch'd"},
		{"  Mr.   Mime ", "mr. mime"},
	}

	for _, tt := range tests {
		if got := foldText(tt.in); got != tt.want {
			t.Errorf("foldText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
