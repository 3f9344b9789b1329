package helpers

import (
	"fmt"
	"os"

	"github.com/samber/oops"
	"github.com/sirupsen/logrus"
)

// NewLogger creates a configured Logrus logger
func NewLogger(appName, env string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	if env == "development" {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	logger.WithFields(logrus.Fields{"app": appName, "env": env}).Info("logger initialized")
	return logger
}

// ErrorFields flattens err into log fields. oops errors contribute their code and context.
func ErrorFields(err error, fields logrus.Fields) logrus.Fields {
	if fields == nil {
		fields = logrus.Fields{}
	}
	if err == nil {
		return fields
	}
	fields["error"] = err.Error()
	if oopsErr, ok := oops.AsOops(err); ok {
		if code := fmt.Sprint(oopsErr.Code()); code != "" && code != "<nil>" {
			fields["code"] = code
		}
		for k, v := range oopsErr.Context() {
			if _, taken := fields[k]; !taken {
				fields[k] = v
			}
		}
	}
	return fields
}

// LogError logs at error level with the oops code and context attached.
func LogError(logger *logrus.Logger, msg string, err error, fields logrus.Fields) {
	if logger == nil {
		return
	}
	logger.WithFields(ErrorFields(err, fields)).Error(msg)
}

// LogWarn is LogError at warn level, for faults that do not fail the request.
func LogWarn(logger *logrus.Logger, msg string, err error, fields logrus.Fields) {
	if logger == nil {
		return
	}
	logger.WithFields(ErrorFields(err, fields)).Warn(msg)
}
