package constant

// gin.Context 中使用的键
const (
	ProfileField   = "_aw_profile"
	SessionIDField = "_aw_session_id"
	ActorIDField   = "_aw_actor_id"
	LangField      = "_aw_lang"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderRequestLang    = "X-Lang"
	SessionKeyID         = "sid"
)
