// Package logging builds the service's zap logger.
//
// Production mode writes JSON; development mode writes colored console
// output. Components receive a *zap.Logger and name their own child logger:
//
//	logger := logging.NewDefault()
//	mgr := terminal.NewManager(opts, logger.Logger)
//	logger.Session(sess.ID, sess.Name).Info("Session attached")
package logging
