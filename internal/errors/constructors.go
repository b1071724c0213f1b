package errors

// Convenience functions for common error patterns

// Config errors

func ConfigNotFound(path string) *BlogsmithError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

func ConfigRequired(field string) *BlogsmithError {
	return New(CategoryConfig, SeverityFatal, "required configuration missing").
		WithContext("field", field)
}

func ValidationFailed(field, reason string) *BlogsmithError {
	return New(CategoryValidation, SeverityFatal, "validation failed").
		WithContext("field", field).
		WithContext("reason", reason)
}

// Generation errors (terminal for the current run, never retried)

func GenerationFailed(stage string, cause error) *BlogsmithError {
	return Wrap(cause, CategoryGeneration, SeverityError, "content generation failed").
		WithContext("stage", stage)
}

func GenerationMalformed(stage, reason string) *BlogsmithError {
	return New(CategoryGeneration, SeverityError, "generation backend returned malformed output").
		WithContext("stage", stage).
		WithContext("reason", reason)
}

func CostCeilingExceeded(stage string, cost, ceiling float64) *BlogsmithError {
	return New(CategoryGeneration, SeverityError, "generation cost ceiling exceeded").
		WithContext("stage", stage).
		WithContext("cost", cost).
		WithContext("ceiling", ceiling)
}

// Render errors indicate a contract breach between generation and rendering.

func RenderContractViolated(reason string) *BlogsmithError {
	return New(CategoryRender, SeverityError, "rendered document violates structural contract").
		WithContext("reason", reason)
}

// Publish errors

func PublishAuthRejected(platform string, cause error) *BlogsmithError {
	return Wrap(cause, CategoryAuth, SeverityError, "publish authentication rejected").
		WithContext("platform", platform)
}

func PublishRejected(platform, reason string) *BlogsmithError {
	return New(CategoryValidation, SeverityError, "publish payload rejected").
		WithContext("platform", platform).
		WithContext("reason", reason)
}

func PublishTransient(platform string, cause error) *BlogsmithError {
	return WrapRetryable(cause, CategoryNetwork, SeverityWarning, "transient publish failure").
		WithContext("platform", platform)
}

func PublishTimeout(platform string, cause error) *BlogsmithError {
	return WrapRetryable(cause, CategoryNetwork, SeverityWarning, "publish request timed out").
		WithContext("platform", platform)
}

// Storage errors

func StorageError(operation string, cause error) *BlogsmithError {
	return Wrap(cause, CategoryStorage, SeverityError, "object storage operation failed").
		WithContext("operation", operation)
}

// Internal errors

func InternalError(message string, cause error) *BlogsmithError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
