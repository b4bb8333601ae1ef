package logger

import (
	"time"

	"go.uber.org/zap"
)

func RequestID(v string) zap.Field { return zap.String("request_id", v) }

func Method(v string) zap.Field { return zap.String("method", v) }

func Path(v string) zap.Field { return zap.String("path", v) }

func Status(v int) zap.Field { return zap.Int("status", v) }

func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }

func ClientIP(v string) zap.Field { return zap.String("client_ip", v) }

func UserID(v uint) zap.Field { return zap.Uint("user_id", v) }

func ClientID(v string) zap.Field { return zap.String("client_id", v) }

// Op names the operation being logged, e.g. "TokenService.Exchange".
func Op(v string) zap.Field { return zap.String("op", v) }

func Err(err error) zap.Field { return zap.Error(err) }

// TokenFingerprint logs a hash prefix of a token, never the token itself.
func TokenFingerprint(v string) zap.Field { return zap.String("token_fp", v) }
