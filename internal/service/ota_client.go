package service

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// FirmwareRelease 固件发布信息
type FirmwareRelease struct {
	DeviceType  string `json:"device_type"`
	Version     string `json:"version"`
	DownloadURL string `json:"download_url"`
	Checksum    string `json:"checksum"`
	ReleaseNote string `json:"release_note"`
	ForceUpdate bool   `json:"force_update"`
}

// otaResponse OTA 平台响应
type otaResponse struct {
	Code int              `json:"code"`
	Msg  string           `json:"msg"`
	Data *FirmwareRelease `json:"data"`
}

// OTAClient 固件发布平台客户端
type OTAClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewOTAClient 创建 OTA 客户端
func NewOTAClient(baseURL, apiKey string, logger *zap.Logger) *OTAClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("X-API-Key", apiKey)

	return &OTAClient{
		httpClient: client,
		logger:     logger,
	}
}

// LatestRelease 查询指定设备类型的最新固件；无可用固件时返回 (nil, nil)
func (c *OTAClient) LatestRelease(deviceType, currentVersion string) (*FirmwareRelease, error) {
	var response otaResponse
	resp, err := c.httpClient.R().
		SetQueryParam("device_type", deviceType).
		SetQueryParam("current_version", currentVersion).
		SetResult(&response).
		Get("/ota/firmware/latest")

	if err != nil {
		c.logger.Error("OTA API call failed",
			zap.Error(err),
			zap.String("device_type", deviceType),
		)
		return nil, fmt.Errorf("failed to call OTA API: %w", err)
	}
	if resp.StatusCode() == 404 {
		return nil, nil
	}
	if response.Code != 0 {
		c.logger.Error("OTA API returned error",
			zap.Int("code", response.Code),
			zap.String("msg", response.Msg),
		)
		return nil, fmt.Errorf("OTA API error: %s (code: %d)", response.Msg, response.Code)
	}

	// 已是最新版本
	if response.Data == nil || response.Data.Version == currentVersion {
		return nil, nil
	}

	c.logger.Info("firmware release found",
		zap.String("device_type", deviceType),
		zap.String("current_version", currentVersion),
		zap.String("latest_version", response.Data.Version),
	)
	return response.Data, nil
}
