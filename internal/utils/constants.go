package utils

// EmptyString represents a reusable empty string constant.
const EmptyString = ""

// ConfigFileName is the persisted configuration file written at the repository root.
const ConfigFileName = ".commitlm.yaml"

// GlobalConfigDirectoryName is the directory under the user home holding global configuration.
const GlobalConfigDirectoryName = ".commitlm"

// LoggerInitializationFailedMessageFormat reports a failure to construct the application logger.
const LoggerInitializationFailedMessageFormat = "logger initialization failed: %w"

// ApplicationExecutionFailedMessage prefixes fatal command execution errors.
const ApplicationExecutionFailedMessage = "application execution failed"
