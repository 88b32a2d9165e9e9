package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/config"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/repository"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/seed"
)

func main() {
	var op int
	var n int
	var departmentID int64

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入随机员工, 2: 插入演示医院数据)")
	flag.IntVar(&n, "n", 5, "要插入的记录数量")
	flag.Int64Var(&departmentID, "department-id", 0, "随机员工所属的科室 ID，为 0 时不指定")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// 创建数据库连接池
	dbpool, err := pgxpool.New(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	if err := dbpool.Ping(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	// 创建 repository
	repo := repository.NewRepository(cfg, dbpool)

	// 执行操作
	switch op {
	case 0:
		slog.Error("未指定操作")
	case 1:
		if n <= 0 {
			slog.Error("请输入合法的员工数量")
			return
		}

		var dept *int64
		if departmentID > 0 {
			dept = &departmentID
		}

		cnt := seed.SeedRandomStaff(context.Background(), repo, n, cfg.Seed.User.Password, cfg.Email.UserDomain, dept)
		slog.Info("插入员工成功", slog.Int("count", cnt))
	case 2:
		summary, err := seed.SeedDemoHospital(context.Background(), repo, cfg.Seed.User.Password, cfg.Email.UserDomain, time.Now())
		if err != nil {
			switch {
			case errors.Is(err, seed.ErrAlreadySeeded):
				slog.Warn("数据库中已有数据，跳过演示数据")
			default:
				slog.Error("无法插入演示数据", slog.String("error", err.Error()))
			}
			return
		}

		slog.Info("插入演示数据成功",
			slog.Int("departments", summary.Departments),
			slog.Int("users", summary.Users),
			slog.Int("shifts", summary.Shifts),
			slog.Int("assignments", summary.Assignments),
		)
	default:
		slog.Error("指定的操作非法")
	}
}
