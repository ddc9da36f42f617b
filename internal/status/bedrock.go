package status

import (
	"github.com/woozymasta/mcping/internal/bedrock"
	"github.com/woozymasta/mcping/internal/models"
)

// BuildBedrock converts an unconnected pong into a BedrockStatus. The two MOTD
// fields become the two message lines.
func BuildBedrock(pong *bedrock.Pong, meta Meta) *models.BedrockStatus {
	m := lines(pong.Motd1 + "\n" + pong.Motd2)

	return &models.BedrockStatus{
		Online:          true,
		IP:              meta.IP,
		Hostname:        meta.Hostname,
		Port:            meta.Port,
		Latency:         meta.Latency,
		Debug:           models.Debug{Ping: true},
		Motd:            *m,
		Edition:         pong.Edition,
		ProtocolName:    pong.ProtocolName,
		ServerID:        pong.ServerID,
		Gamemode:        pong.Gamemode,
		ProtocolVersion: pong.ProtocolVersion,
		PlayerCount:     pong.PlayerCount,
		PlayerMax:       pong.PlayerMax,
		GamemodeID:      pong.GamemodeID,
		PortIPv4:        pong.PortIPv4,
		PortIPv6:        pong.PortIPv6,
	}
}
