package middleware

import (
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/deemkeen/kinship/util"
	"go.uber.org/zap"
)

// PublicKeyHandler only lets the configured admin keys in.
func PublicKeyHandler(admins []ssh.PublicKey, logger *zap.Logger) ssh.PublicKeyHandler {
	return func(ctx ssh.Context, key ssh.PublicKey) bool {
		for _, admin := range admins {
			if ssh.KeysEqual(key, admin) {
				return true
			}
		}
		logger.Warn("Rejected console login",
			zap.String("user", ctx.User()),
			zap.String("remote", ctx.RemoteAddr().String()),
			zap.String("key", util.PublicKeyToString(key)))
		return false
	}
}

// AuthMiddleware logs who opened a console session.
func AuthMiddleware(logger *zap.Logger) wish.Middleware {
	return func(h ssh.Handler) ssh.Handler {
		return func(s ssh.Session) {
			if key := s.PublicKey(); key != nil {
				logger.Info("Console session opened",
					zap.String("user", s.User()),
					zap.String("remote", s.RemoteAddr().String()),
					zap.String("key", util.PublicKeyToString(key)))
			}
			h(s)
		}
	}
}
