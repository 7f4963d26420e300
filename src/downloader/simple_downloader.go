// 以浏览器请求头做http GET下载
// 网络层的瞬时错误（超时、连接被重置）最多重试一次，非200状态码不重试
package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/andrewyi/pricewatch/src/entity"
	"github.com/andrewyi/pricewatch/src/enum"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// 重试次数上限
	maxRetry = 1

	maxBodySize = 8 << 20
)

type SimpleDownloader struct {
	timeout   time.Duration
	backoff   time.Duration
	retry     uint32
	userAgent string

	client *http.Client
}

func NewSimpleDownloader(timeout, backoff time.Duration, retry uint32, userAgent string) Downloader {
	if retry > maxRetry {
		retry = maxRetry
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &SimpleDownloader{
		timeout:   timeout,
		backoff:   backoff,
		retry:     retry,
		userAgent: userAgent,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (s *SimpleDownloader) Download(ctx context.Context, url string) entity.PageInfo {
	var (
		err        error
		retryCount uint32
		page       entity.PageInfo
	)

	for {
		page, err = s.fetch(ctx, url)
		if err == nil {
			return page
		}
		if retryCount >= s.retry || !isTransient(ctx, err) {
			break
		}
		retryCount++

		timer := time.NewTimer(s.backoff * time.Duration(retryCount))
		select {
		case <-ctx.Done():
			timer.Stop()
			err = ctx.Err()
		case <-timer.C:
			continue
		}
		break
	}

	page.URL = url
	page.State = enum.PageStateFail
	page.Remark = err.Error()
	return page
}

func (s *SimpleDownloader) fetch(ctx context.Context, url string) (entity.PageInfo, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return entity.PageInfo{}, err
	}
	req = req.WithContext(ctx)

	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	resp, err := s.client.Do(req)
	if err != nil {
		return entity.PageInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return entity.PageInfo{StatusCode: resp.StatusCode}, fmt.Errorf("status code: %d", resp.StatusCode)
	}

	content, err := ioutil.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return entity.PageInfo{StatusCode: resp.StatusCode}, err
	}

	return entity.PageInfo{
		URL:        url,
		State:      enum.PageStateSuccess,
		StatusCode: resp.StatusCode,
		Content:    string(content),
	}, nil
}

// 调用方取消不算瞬时错误
func isTransient(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}
