package constants

const (
	MAIN_DATABASE = "chirpnet"

	USERS_COLLECTION         = "users"
	POSTS_COLLECTION         = "posts"
	COMMENTS_COLLECTION      = "comments"
	CONVERSATIONS_COLLECTION = "conversations"
	MESSAGES_COLLECTION      = "messages"
)
