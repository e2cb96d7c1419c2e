// Package common holds the runtime configuration of the dq tool and the
// logger factory shared by all packages.
//
// Loggers are obtained through the dragonboat logger registry
// (logger.GetLogger("pull")). InitLoggers installs the custom factory of this
// package and sets the level of every known package logger at once:
//
//	if err := common.InitLoggers("debug"); err != nil {
//		return err
//	}
package common
