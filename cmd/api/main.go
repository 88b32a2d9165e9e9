package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/advisor"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/config"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/emergency"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/handler"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/notify"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/repository"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/roster"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/voice"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	/**********************************************
	 * 创建 logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * 加载配置
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法加载配置文件", "error", err)
		return
	}

	/**********************************************
	 * 连接数据库
	 **********************************************/
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN)
	if err != nil {
		logger.Error("无法解析数据库连接串", "error", err)
		return
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.Database.MaxIdleConns)
	poolCfg.MaxConnIdleTime = time.Duration(cfg.Database.MaxIdleTime) * time.Second

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	dbpool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	// pgxpool 是惰性连接的，因此需要显式地 ping 一下
	if err := dbpool.Ping(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	/**********************************************
	 * 创建 repository
	 **********************************************/
	repo := repository.NewRepository(cfg, dbpool)

	/**********************************************
	 * 确保数据库中存在初始管理员
	 **********************************************/
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(cfg.InitialAdmin.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("无法生成初始管理员密码哈希", "error", err)
		return
	}
	initialAdmin := &domain.User{
		Username:     cfg.InitialAdmin.Username,
		PasswordHash: string(passwordHash),
		FullName:     cfg.InitialAdmin.FullName,
		Email:        cfg.InitialAdmin.Email,
		Role:         domain.RoleAdmin,
	}
	if err := repo.CreateUser(context.Background(), initialAdmin); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.ConstraintName == "users_username_key":
			// 如果返回这个错误，说明数据库中已经存在初始管理员，不处理
		default:
			logger.Error("无法创建初始管理员", "error", err)
			return
		}
	}

	/**********************************************
	 * 连接 rabbitmq
	 **********************************************/
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Error("无法连接到 rabbitmq", "error", err)
		return
	}
	defer conn.Close()

	// 建立通道
	ch, err := conn.Channel()
	if err != nil {
		logger.Error("无法建立通道", "error", err)
		return
	}
	defer ch.Close()

	// 声明队列
	_, err = ch.QueueDeclare(
		cfg.RabbitMQ.MailQueue,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		logger.Error("无法声明队列", "error", err)
		return
	}

	publisher := notify.NewPublisher(cfg, ch)

	/**********************************************
	 * 连接 redis
	 **********************************************/
	rdb := redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password:    cfg.Redis.Password,
		DB:          0,
		DialTimeout: time.Duration(cfg.Redis.ConnectTimeout) * time.Second,
	})
	defer rdb.Close()

	// redis 不可用时红色警报会跳过加锁继续执行，因此这里只记录警告
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("无法连接到 redis", "error", err)
	}

	locker := emergency.NewRedisLocker(rdb, time.Duration(cfg.RedAlert.LockTTL)*time.Second)

	/**********************************************
	 * 创建外部服务客户端
	 **********************************************/
	reasoner := advisor.NewOpenAIReasoner(cfg)
	if !reasoner.Available() {
		logger.Warn("未配置推理服务，将使用规则生成的应急方案")
	}
	planner := advisor.NewPolicyAdvisor(advisor.NewLiveAdvisor(reasoner), logger)
	assistant := advisor.NewAssistant(reasoner, logger)

	synthesizer := voice.NewElevenLabsClient(cfg)
	if !synthesizer.Configured() {
		logger.Warn("未配置语音合成服务，广播将只发送文字")
	}
	audioStore, err := voice.NewAudioStore(cfg.ElevenLabs.AudioDir)
	if err != nil {
		logger.Error("无法创建音频目录", "error", err)
		return
	}
	broadcaster := voice.NewBroadcaster(synthesizer, audioStore, logger)

	/**********************************************
	 * 创建业务组件
	 **********************************************/
	orchestrator := emergency.NewOrchestrator(cfg, repo, planner, broadcaster, locker, publisher, logger)
	rosterService := roster.NewService(repo)

	/**********************************************
	 * 创建 handler
	 **********************************************/
	handler, err := handler.NewHandler(cfg, repo, handler.Services{
		Emergency:   orchestrator,
		Roster:      rosterService,
		Assistant:   assistant,
		Synthesizer: synthesizer,
		Audio:       audioStore,
		Mailer:      publisher,
	})
	if err != nil {
		logger.Error("无法创建 handler", "error", err)
		return
	}
	handler.RegisterRoutes()

	/**********************************************
	 * 启动 HTTP 服务器
	 **********************************************/
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      handler.Mux,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("正在启动服务器...", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("无法启动服务器", slog.String("error", err.Error()))
			quit <- syscall.SIGTERM
		}
	}()

	<-quit
	logger.Info("正在关闭服务器...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("关闭服务器失败", slog.String("error", err.Error()))
	}
	logger.Info("服务器已成功关闭")
}
