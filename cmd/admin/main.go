// Package main provides template and account maintenance commands.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"

	"cleanclip/config"
	"cleanclip/model"
	"cleanclip/service"
	"cleanclip/utils"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const usage = `usage: admin <command> [flags]

commands:
  migrate                 create or update database tables
  stats                   database statistics
  users [-limit N]        recently registered users
  templates               template counts by service type
  activate ID             activate a template
  deactivate ID           deactivate a template
  load [-service s] [-clear] [-dry-run] [-dir path]
                          load templates from <dir>/<service_type>.json
`

var errUsage = errors.New("invalid usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout, openBackend)
	utils.CloseDB()
	utils.CloseRedis()
	if errors.Is(err, errUsage) {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// backend 管理命令使用的数据库和可选的模板池缓存
type backend struct {
	db    *gorm.DB
	pools service.PoolInvalidator
}

func newBackend(db *gorm.DB, rdb *redis.Client) *backend {
	b := &backend{db: db}
	if rdb != nil {
		b.pools = service.NewRedisPoolCache(rdb)
	}
	return b
}

// templates 模板启停和导入后同步清理线上服务共享的模板池缓存
func (b *backend) templates() *service.TemplateService {
	svc := service.NewTemplateService(b.db)
	if b.pools != nil {
		svc.SetPoolInvalidator(b.pools)
	}
	return svc
}

func openBackend() (*backend, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	utils.InitLogger(cfg.LogLevel, false)
	if err := utils.InitDB(cfg.DatabaseURL); err != nil {
		return nil, err
	}
	if err := utils.InitRedis(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB); err != nil {
		utils.Log.WithError(err).Warn("Redis unavailable, cached template pools expire on their own")
		return newBackend(utils.GetDB(), nil), nil
	}
	return newBackend(utils.GetDB(), utils.GetRedis()), nil
}

// run 执行子命令。数据库只在需要时才连接，-dry-run 不连接数据库。
func run(ctx context.Context, args []string, out io.Writer, connect func() (*backend, error)) error {
	if len(args) == 0 {
		return errUsage
	}

	switch cmd, rest := args[0], args[1:]; cmd {
	case "migrate":
		b, err := connect()
		if err != nil {
			return err
		}
		if err := utils.Migrate(b.db); err != nil {
			return err
		}
		fmt.Fprintln(out, "migration complete")
		return nil

	case "stats":
		b, err := connect()
		if err != nil {
			return err
		}
		stats, err := service.NewAdminService(b.db).GetStats(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Users:                %d\n", stats.Users)
		fmt.Fprintf(out, "Active subscriptions: %d\n", stats.ActiveSubscriptions)
		fmt.Fprintf(out, "Templates:            %d (%d active)\n", stats.Templates, stats.ActiveTemplates)
		fmt.Fprintf(out, "Total deliveries:     %d\n", stats.Deliveries)
		fmt.Fprintf(out, "Refunds processed:    %d\n", stats.Refunds)
		return nil

	case "users":
		fs := flag.NewFlagSet("users", flag.ContinueOnError)
		limit := fs.Int("limit", 20, "number of users to show")
		if err := fs.Parse(rest); err != nil {
			return errUsage
		}
		b, err := connect()
		if err != nil {
			return err
		}
		users, err := service.NewAdminService(b.db).RecentUsers(ctx, *limit)
		if err != nil {
			return err
		}
		for _, u := range users {
			fmt.Fprintf(out, "  [%-10s] %-30s (%s)\n", u.SubscriptionStatus, u.Email, u.CreatedAt.Format(model.DateLayout))
		}
		return nil

	case "templates":
		b, err := connect()
		if err != nil {
			return err
		}
		counts, err := b.templates().CountsByServiceType(ctx)
		if err != nil {
			return err
		}
		for _, c := range counts {
			fmt.Fprintf(out, "  %-15s %3d active / %3d total\n", c.ServiceType, c.Active, c.Total)
		}
		return nil

	case "activate", "deactivate":
		if len(rest) != 1 {
			return errUsage
		}
		id, err := strconv.ParseInt(rest[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid template id %q", rest[0])
		}
		b, err := connect()
		if err != nil {
			return err
		}
		template, err := b.templates().SetActive(ctx, id, cmd == "activate")
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "template %d (%s) %sd\n", template.ID, template.ServiceType, cmd)
		return nil

	case "load":
		return runLoad(ctx, rest, out, connect)

	default:
		return errUsage
	}
}

func runLoad(ctx context.Context, args []string, out io.Writer, connect func() (*backend, error)) error {
	fs := flag.NewFlagSet("load", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	serviceType := fs.String("service", "", "only load templates for this service type")
	clearFirst := fs.Bool("clear", false, "clear existing templates before loading")
	dryRun := fs.Bool("dry-run", false, "show what would be loaded without inserting")
	dir := fs.String("dir", os.Getenv("TEMPLATES_DIR"), "template directory (default data/templates)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *dir == "" {
		*dir = "data/templates"
	}

	inputs, err := service.ReadTemplateDir(*dir, model.ServiceType(*serviceType))
	if err != nil {
		return err
	}

	counts := service.CountTemplateInputs(inputs)
	fmt.Fprintf(out, "Total templates to load: %d\n", len(inputs))
	types := make([]string, 0, len(counts))
	for st := range counts {
		types = append(types, string(st))
	}
	sort.Strings(types)
	for _, st := range types {
		fmt.Fprintf(out, "  %s: %d\n", st, counts[model.ServiceType(st)])
	}

	if *dryRun {
		fmt.Fprintln(out, "[DRY RUN] No changes made to database")
		return nil
	}

	var toClear []model.ServiceType
	if *clearFirst {
		if *serviceType != "" {
			toClear = []model.ServiceType{model.ServiceType(*serviceType)}
		} else {
			toClear = model.ServiceTypes
		}
	}

	records := make([]model.ContentTemplate, 0, len(inputs))
	for _, in := range inputs {
		records = append(records, in.ToModel())
	}

	b, err := connect()
	if err != nil {
		return err
	}
	inserted, err := b.templates().InsertTemplates(ctx, records, toClear)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Inserted %d templates\n", inserted)
	return nil
}
