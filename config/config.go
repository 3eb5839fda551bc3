package config

import (
	"database/sql"
	_ "github.com/lib/pq"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

const (
	StorageBackendMemory   = "memory"
	StorageBackendPostgres = "postgres"
	StorageBackendRedis    = "redis"

	ArtifactBackendLocal = "local"
	ArtifactBackendMinIO = "minio"

	LauncherExec     = "exec"
	LauncherRabbitMQ = "rabbitmq"
)

type Config struct {
	App         App           `yaml:"app"`
	Server      Server        `yaml:"server"`
	Upload      Upload        `yaml:"upload"`
	Storage     Storage       `yaml:"storage"`
	Artifacts   Artifacts     `yaml:"artifacts"`
	Worker      Worker        `yaml:"worker"`
	Queue       *RabbitMQ     `yaml:"rabbitmq"`
	MinIOBucket string        `yaml:"minio_bucket"`
	DB          *sql.DB       `yaml:"db"`
	Redis       *redis.Client `yaml:"redis"`
	ObjectStore *minio.Client `yaml:"object_store"`
}

type App struct {
	Environment string `yaml:"environment"`
	Host        string `yaml:"host"`
	Protocol    string `yaml:"protocol"`
}

type Server struct {
	HttpPort string `yaml:"http_port"`
}

type Upload struct {
	Dir     string `yaml:"dir"`
	MaxSize int64  `yaml:"max_size"`
}

type Storage struct {
	Backend string `yaml:"backend"`
}

type Artifacts struct {
	Backend string `yaml:"backend"`
	Root    string `yaml:"root"`
}

type Worker struct {
	Launcher string `yaml:"launcher"`
	Command  string `yaml:"command"`
	Script   string `yaml:"script"`
}

type RabbitMQ struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	User string `json:"user"`
	Pass string `json:"pass"`
	Kind string `json:"kind"`
}

func Load(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.SetDefault("storage.backend", StorageBackendMemory)
	viper.SetDefault("artifacts.backend", ArtifactBackendLocal)
	viper.SetDefault("artifacts.root", "outputs")
	viper.SetDefault("upload.dir", "uploads")
	viper.SetDefault("upload.max_size", 50*1024*1024)
	viper.SetDefault("worker.launcher", LauncherExec)
	viper.SetDefault("worker.command", "python3")
	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: App{
			Environment: viper.GetString("app.environment"),
			Host:        viper.GetString("app.host"),
			Protocol:    viper.GetString("app.protocol"),
		},
		Server: Server{
			HttpPort: viper.GetString("server.port"),
		},
		Upload: Upload{
			Dir:     viper.GetString("upload.dir"),
			MaxSize: viper.GetInt64("upload.max_size"),
		},
		Storage: Storage{
			Backend: viper.GetString("storage.backend"),
		},
		Artifacts: Artifacts{
			Backend: viper.GetString("artifacts.backend"),
			Root:    viper.GetString("artifacts.root"),
		},
		Worker: Worker{
			Launcher: viper.GetString("worker.launcher"),
			Command:  viper.GetString("worker.command"),
			Script:   viper.GetString("worker.script"),
		},
		Queue: &RabbitMQ{
			Host: viper.GetString("rabbitmq_host"),
			Port: viper.GetInt("rabbitmq_port"),
			User: viper.GetString("rabbitmq_user"),
			Pass: viper.GetString("rabbitmq_pass"),
			Kind: viper.GetString("rabbitmq_kind"),
		},
	}

	if cfg.Storage.Backend == StorageBackendPostgres {
		db, err := sql.Open("postgres", viper.GetString("postgresql_host"))
		if err != nil {
			return nil, err
		}
		cfg.DB = db
	}

	if cfg.Storage.Backend == StorageBackendRedis {
		cfg.Redis = redis.NewClient(&redis.Options{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		})
	}

	if cfg.Artifacts.Backend == ArtifactBackendMinIO {
		minioClient, err := minio.New(viper.GetString("minio.url"), &minio.Options{
			Creds:  credentials.NewStaticV4(viper.GetString("minio.access_id"), viper.GetString("minio.secret_access_key"), ""),
			Secure: false,
		})
		if err != nil {
			return nil, err
		}
		cfg.ObjectStore = minioClient
		cfg.MinIOBucket = viper.GetString("minio.bucket")
	}

	return cfg, nil
}

// CallbackURL is the base the worker reports progress to.
func (c *Config) CallbackURL() string {
	return c.App.Protocol + "://" + c.App.Host
}
