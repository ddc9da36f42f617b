package status

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/woozymasta/mcping/internal/bedrock"
	"github.com/woozymasta/mcping/internal/java"
	"github.com/woozymasta/mcping/internal/models"
	"github.com/woozymasta/mcping/internal/wire"
)

func decode(t *testing.T, s string) java.RawStatus {
	t.Helper()

	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var raw java.RawStatus
	if err := dec.Decode(&raw); err != nil {
		t.Fatalf("decode %s: %v", s, err)
	}
	return raw
}

func TestBuildJavaMinimal(t *testing.T) {
	raw := decode(t, `{"description":"A Server","players":{"online":3,"max":20},"version":{"name":"1.20","protocol":763}}`)

	st, err := BuildJava(raw, Meta{IP: "127.0.0.1", Port: 25565, Latency: 1.5})
	if err != nil {
		t.Fatalf("BuildJava: %v", err)
	}

	if !st.Online || st.IP != "127.0.0.1" || st.Port != 25565 || st.Latency != 1.5 {
		t.Errorf("meta not copied: %+v", st)
	}
	if st.Version != "1.20" || st.Protocol != 763 {
		t.Errorf("version = %q/%d", st.Version, st.Protocol)
	}
	if st.Players.Online != 3 || st.Players.Max != 20 || st.Players.List != nil {
		t.Errorf("players = %+v", st.Players)
	}
	if st.Map != DefaultMap {
		t.Errorf("map = %q, want %q", st.Map, DefaultMap)
	}
	if !reflect.DeepEqual(st.Motd.Raw, []string{"A Server"}) || !reflect.DeepEqual(st.Motd.Clean, []string{"A Server"}) {
		t.Errorf("motd = %+v", st.Motd)
	}
	if st.Info != nil || st.Mods != nil || st.Plugins != nil {
		t.Errorf("unexpected optional fields: %+v", st)
	}
	if !st.Debug.Ping || st.Debug.SRV || st.Debug.Query {
		t.Errorf("debug = %+v", st.Debug)
	}
}

func TestBuildJavaMissingFields(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"no_version", `{"players":{"online":0,"max":0}}`},
		{"no_players", `{"version":{"name":"1.20","protocol":763}}`},
		{"players_not_object", `{"players":5,"version":{"name":"1.20","protocol":763}}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := BuildJava(decode(t, tc.doc), Meta{})
			if !errors.Is(err, wire.ErrMalformedPayload) {
				t.Fatalf("BuildJava error = %v, want ErrMalformedPayload", err)
			}
		})
	}
}

func TestBuildJavaSample(t *testing.T) {
	raw := decode(t, `{
		"version":{"name":"Paper 1.20.1","protocol":763},
		"players":{"online":2,"max":50,"sample":[
			{"name":"Notch","id":"069a79f4-44e9-4726-a5be-fca90e38aaf5"},
			{"name":"§aWelcome!","id":"00000000-0000-0000-0000-000000000000"},
			{"name":"jeb_","id":"853c80ef3c3749fdaa49938b674adae6"}
		]},
		"description":{"text":"Hello ","color":"gold","extra":[{"text":"World","bold":true}]},
		"favicon":"data:image/png;base64,AAAA",
		"map":"lobby"
	}`)

	st, err := BuildJava(raw, Meta{Hostname: "mc.example.com", SRV: true})
	if err != nil {
		t.Fatalf("BuildJava: %v", err)
	}

	wantPlayers := []models.Player{
		{Name: "Notch", UUID: "069a79f4-44e9-4726-a5be-fca90e38aaf5"},
		{Name: "jeb_", UUID: "853c80ef-3c37-49fd-aa49-938b674adae6"},
	}
	if !reflect.DeepEqual(st.Players.List, wantPlayers) {
		t.Errorf("players = %+v", st.Players.List)
	}
	if st.Info == nil || !reflect.DeepEqual(st.Info.Clean, []string{"Welcome!"}) {
		t.Errorf("info = %+v", st.Info)
	}
	if got := st.Motd.Raw[0]; got != "§6Hello §lWorld" {
		t.Errorf("motd raw = %q", got)
	}
	if got := st.Motd.Clean[0]; got != "Hello World" {
		t.Errorf("motd clean = %q", got)
	}
	if st.Icon != "data:image/png;base64,AAAA" || st.Map != "lobby" {
		t.Errorf("icon/map = %q/%q", st.Icon, st.Map)
	}
	if !st.Debug.SRV || st.Hostname != "mc.example.com" {
		t.Errorf("srv meta = %+v", st)
	}
}

func TestBuildJavaMods(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want map[string]string
	}{
		{
			"modinfo",
			`{"version":{"name":"1.12.2","protocol":340},"players":{"online":0,"max":1},
			  "modinfo":{"type":"FML","modList":[{"modid":"minecraft","version":"1.12.2"},{"modid":"forge","version":"14.23"}]}}`,
			map[string]string{"minecraft": "1.12.2", "forge": "14.23"},
		},
		{
			"forge_data",
			`{"version":{"name":"1.18.2","protocol":758},"players":{"online":0,"max":1},
			  "forgeData":{"mods":[{"modId":"jei","modmarker":"9.7"}]}}`,
			map[string]string{"jei": "9.7"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st, err := BuildJava(decode(t, tc.doc), Meta{})
			if err != nil {
				t.Fatalf("BuildJava: %v", err)
			}
			if st.Mods == nil || !reflect.DeepEqual(st.Mods.Raw, tc.want) || len(st.Mods.Names) != len(tc.want) {
				t.Errorf("mods = %+v, want %v", st.Mods, tc.want)
			}
		})
	}
}

func TestBuildJavaPlugins(t *testing.T) {
	raw := decode(t, `{"version":{"name":"1.20","protocol":763},"players":{"online":0,"max":1},
		"plugins":"Paper on 1.20: WorldEdit 7.2; Essentials 2.20"}`)

	st, err := BuildJava(raw, Meta{})
	if err != nil {
		t.Fatalf("BuildJava: %v", err)
	}
	if st.Software != "Paper on 1.20" {
		t.Errorf("software = %q", st.Software)
	}
	want := &models.Mods{
		Raw:   map[string]string{"WorldEdit": "7.2", "Essentials": "2.20"},
		Names: []string{"WorldEdit", "Essentials"},
	}
	if !reflect.DeepEqual(st.Plugins, want) {
		t.Errorf("plugins = %+v", st.Plugins)
	}
}

func TestDescription(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"string", "plain", "plain"},
		{"nil", nil, ""},
		{"array", []any{"a", map[string]any{"text": "b", "italic": true}}, "a§ob"},
		{"translate", map[string]any{"translate": "multiplayer.status"}, "multiplayer.status"},
		{"unknown_color", map[string]any{"text": "x", "color": "#FF0000"}, "x"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Description(tc.in); got != tc.want {
				t.Errorf("Description = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestBuildBedrock(t *testing.T) {
	pong := &bedrock.Pong{
		Edition:         "MCPE",
		Motd1:           "§bDedicated Server",
		ProtocolVersion: 594,
		ProtocolName:    "1.20.10",
		PlayerCount:     2,
		PlayerMax:       10,
		ServerID:        "13253860892328930865",
		Motd2:           "Bedrock level",
		Gamemode:        "Survival",
		GamemodeID:      1,
		PortIPv4:        19132,
		PortIPv6:        19133,
	}

	st := BuildBedrock(pong, Meta{IP: "192.0.2.1", Port: 19132, Latency: 4})

	if !reflect.DeepEqual(st.Motd.Clean, []string{"Dedicated Server", "Bedrock level"}) {
		t.Errorf("motd = %+v", st.Motd)
	}
	if st.PlayerCount != 2 || st.PlayerMax != 10 || st.ServerID != "13253860892328930865" {
		t.Errorf("status = %+v", st)
	}
	if !st.Online || st.IP != "192.0.2.1" || st.Latency != 4 {
		t.Errorf("meta = %+v", st)
	}
}
