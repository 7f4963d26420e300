package core

import (
	"bufio"
	"context"
	"os"
	"strings"

	"github.com/andrewyi/pricewatch/src/analyzer"
)

// ImportSeed 导入seed文件中的商品url，每行一个，#开头为注释
// 站点由url的host识别，识别不了的行跳过；每个url按普通刷新处理，成功才会建立商品
func (r *Refresher) ImportSeed(ctx context.Context, registry *analyzer.Registry, seedFilePath string) (Report, error) {
	file, err := os.Open(seedFilePath)
	if err != nil {
		return Report{}, err
	}
	defer file.Close()

	var (
		targets []target
		skipped int
		seen    = make(map[string]struct{})
	)
	scanner := bufio.NewScanner(file)
	scanner.Split(bufio.ScanLines)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}

		a := registry.Find(line)
		if a == nil {
			r.logger.WithField("url", line).Warn("no site handles seed url, skip")
			skipped++
			continue
		}
		targets = append(targets, target{url: line, site: a.Site()})
	}
	if err := scanner.Err(); err != nil {
		return Report{}, err
	}

	report := r.run(ctx, targets)
	report.Total += skipped
	report.Failed += skipped

	r.logger.WithField("file", seedFilePath).
		WithField("total", report.Total).
		WithField("updated", report.Updated).
		WithField("failed", report.Failed).
		Info("seed imported")
	return report, nil
}
