package server

import (
	"gopkg.in/urfave/cli.v1"
)

// NewApp 组装命令行，所有命令共用同一个Server
func NewApp(s *Server) *cli.App {
	app := cli.NewApp()

	app.Name = "pricewatch"
	app.Version = "0.1.0"
	app.Usage = "跟踪电商商品价格，降价时提醒"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config,c",
			Usage: "配置文件，为空时使用默认配置",
		},
	}
	app.Before = s.Before

	productFlag := cli.Int64Flag{Name: "product,p", Usage: "商品id"}
	app.Commands = []cli.Command{
		{
			Name:   "refresh",
			Usage:  "刷新所有商品价格并评估提醒",
			Action: s.Refresh,
		},
		{
			Name:   "watch",
			Usage:  "按refresh.schedule定时刷新",
			Action: s.Watch,
		},
		{
			Name:      "search",
			Usage:     "在所有站点搜索商品",
			ArgsUsage: "<query>",
			Flags: []cli.Flag{
				cli.BoolFlag{Name: "json", Usage: "以json输出"},
				cli.BoolFlag{Name: "samples", Usage: "为没有结果的站点补示例结果"},
			},
			Action: s.Search,
		},
		{
			Name:  "save",
			Usage: "保存一个搜索结果",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "name"},
				cli.StringFlag{Name: "url"},
				cli.StringFlag{Name: "site", Usage: "Amazon | Flipkart | Myntra | Ajio"},
				cli.Float64Flag{Name: "price"},
			},
			Action: s.Save,
		},
		{
			Name:  "alert",
			Usage: "设置降价提醒",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "email"},
				productFlag,
				cli.Float64Flag{Name: "target", Usage: "目标价格"},
			},
			Action: s.Alert,
		},
		{
			Name:   "delete",
			Usage:  "删除商品及其价格历史和提醒",
			Flags:  []cli.Flag{productFlag},
			Action: s.Delete,
		},
		{
			Name:   "list",
			Usage:  "列出已跟踪的商品",
			Action: s.List,
		},
		{
			Name:   "seed",
			Usage:  "从文件导入商品url",
			Flags:  []cli.Flag{cli.StringFlag{Name: "file,f", Usage: "每行一个url"}},
			Action: s.Seed,
		},
	}
	return app
}
