package service

import (
	"github.com/avolkv/canvora/cache"
	"github.com/avolkv/canvora/mq"
	"github.com/avolkv/canvora/store"
	"golang.org/x/oauth2"
)

type Service struct {
	Store        store.CanvoraStore
	Cache        cache.CanvoraCache
	MQ           mq.MessageQueue
	OAuthConfigs map[string]*oauth2.Config
	JWTSecret    []byte
}

func NewService(
	store store.CanvoraStore,
	cache cache.CanvoraCache,
	mq mq.MessageQueue,
	oauthConfigs map[string]*oauth2.Config,
	jwtSecret []byte,
) (*Service, error) {
	oauthConfigs, err := addOauthEndpointsAndScopes(oauthConfigs)
	if err != nil {
		return nil, err
	}

	return &Service{
		Store:        store,
		Cache:        cache,
		MQ:           mq,
		OAuthConfigs: oauthConfigs,
		JWTSecret:    jwtSecret,
	}, nil
}
