package store

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid username or birth date")
	ErrLoginFailed        = errors.New("login failed")
	ErrCaptionTooLong     = errors.New("caption is too long")
	ErrCommentTooLong     = errors.New("comment is too long")
	ErrEmptyComment       = errors.New("comment is empty")
	ErrNoSession          = errors.New("no active session")
	ErrMissingMedia       = errors.New("media url is required")
)

// Messages shown to the user. The stores keep them in their state so a view can
// render the last failure next to a reload control.
const (
	msgInvalidCredentials = "ユーザー名または生年月日が正しくありません"
	msgLoginFailed        = "ログインに失敗しました"
	msgPostsFailed        = "投稿の取得に失敗しました"
	msgUserPostsFailed    = "ユーザーの投稿の取得に失敗しました"
	msgPostFailed         = "投稿の取得に失敗しました"
	msgCommentsFailed     = "コメントの取得に失敗しました"
)
