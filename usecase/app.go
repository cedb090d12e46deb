package usecase

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/multiwa/multiwa/core/config"
	domainApp "github.com/multiwa/multiwa/domains/app"
	"github.com/multiwa/multiwa/repository"
)

type serviceApp struct {
	settings *repository.SettingsStore
}

func NewAppService(settings *repository.SettingsStore) domainApp.IAppUsecase {
	return &serviceApp{settings: settings}
}

func (service serviceApp) GetSettings(ctx context.Context) (domainApp.Settings, error) {
	model, err := service.settings.Get(ctx, repository.SettingAIModel)
	if err != nil {
		return domainApp.Settings{}, err
	}
	if model == "" {
		model = config.Global.AI.Model
	}

	prompt, err := service.settings.Get(ctx, repository.SettingAISystemPrompt)
	if err != nil {
		return domainApp.Settings{}, err
	}
	if prompt == "" {
		prompt = config.Global.AI.SystemPrompt
	}

	apiKey, err := service.settings.GetAIAPIKey(ctx)
	if err != nil {
		return domainApp.Settings{}, err
	}

	return domainApp.Settings{
		AIModel:        model,
		AISystemPrompt: prompt,
		AIKeySet:       apiKey != "" || config.Global.AI.APIKey != "",
	}, nil
}

func (service serviceApp) UpdateSettings(ctx context.Context, request domainApp.UpdateSettingsRequest) (domainApp.Settings, error) {
	if request.AIAPIKey != nil {
		if err := service.settings.SetAIAPIKey(ctx, *request.AIAPIKey); err != nil {
			return domainApp.Settings{}, err
		}
		logrus.Info("[CONFIG] AI API key updated")
	}
	if request.AIModel != nil {
		if err := service.settings.Set(ctx, repository.SettingAIModel, *request.AIModel); err != nil {
			return domainApp.Settings{}, err
		}
	}
	if request.AISystemPrompt != nil {
		if err := service.settings.Set(ctx, repository.SettingAISystemPrompt, *request.AISystemPrompt); err != nil {
			return domainApp.Settings{}, err
		}
	}

	return service.GetSettings(ctx)
}
