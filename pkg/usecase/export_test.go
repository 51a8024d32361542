package usecase

// OutboundError is exported for testing
var OutboundError = outboundError

// VerifySignature is exported for testing
var VerifySignature = (*WebhookUseCase).verifySignature
