package auth

// Scopes granted on feedboard session tokens.
const (
	ScopeFeedPost = "feed:post"
	ScopeFeedRead = "feed:read"
)
