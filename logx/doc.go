/*
Package logx is the process-wide leveled logger.

	logx.Info("session %s created for user %s", sessionID, userID)
	logx.Error("commit failed: %s", errx.Describe(err))

The default logger reads its settings from the environment at start-up:

	LOG_LEVEL   trace | debug | info | warn | error | off   (default info)
	LOG_FORMAT  console | json                             (default console)
	LOG_COLOR   false disables level colors on the console
	LOG_CALLER  false hides file:line

Configure applies the same settings later, for example from a loaded config
file. Empty fields keep whatever the environment set.
*/
package logx
