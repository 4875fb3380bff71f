package handler

import (
	"livechat/internal/app/chat"
	"livechat/internal/app/storage"
	"livechat/internal/configs"
)

// AppDeps bundles what the HTTP handlers need.
type AppDeps struct {
	Room   *chat.Room
	Config *configs.AppConfig
	Images storage.ImageStore
}
