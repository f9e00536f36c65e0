package utils

// LoggerInitializationFailedMessageFormat reports a failure to construct the application logger.
const LoggerInitializationFailedMessageFormat = "failed to initialize logger: %w"

// ApplicationExecutionFailedMessage prefixes fatal application errors.
const ApplicationExecutionFailedMessage = "application execution failed"
