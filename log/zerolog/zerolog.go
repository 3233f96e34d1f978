package zerolog

import (
	"github.com/rs/zerolog"

	"github.com/unkn0wn-root/replaycache"
)

type ZerologLogger struct{ L zerolog.Logger }

var _ replaycache.Logger = ZerologLogger{}

func (z ZerologLogger) Debug(msg string, f replaycache.Fields) {
	z.L.Debug().Fields(map[string]any(f)).Msg(msg)
}
func (z ZerologLogger) Info(msg string, f replaycache.Fields) {
	z.L.Info().Fields(map[string]any(f)).Msg(msg)
}
func (z ZerologLogger) Warn(msg string, f replaycache.Fields) {
	z.L.Warn().Fields(map[string]any(f)).Msg(msg)
}
func (z ZerologLogger) Error(msg string, f replaycache.Fields) {
	z.L.Error().Fields(map[string]any(f)).Msg(msg)
}
