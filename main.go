package main

import (
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/nvkalinin/fantasy-calendar/cmd"
	"github.com/nvkalinin/fantasy-calendar/log"
)

type CLI struct {
	Debug bool `short:"d" long:"debug" env:"DEBUG" description:"Выводить отладочные сообщения в лог."`

	Server cmd.Server `command:"server" description:"Запустить сервер (rest + ежедневный сдвиг текущей даты мира)."`
	Show   cmd.Show   `command:"show" description:"Показать сетку месяца, фазы лун и восходы для даты."`
	Note   cmd.Note   `command:"note" description:"Сохранить или удалить заметку на дату через REST API."`
	Backup cmd.Backup `command:"backup" description:"Сделать резервную копию заметок из хранилища bolt."`
}

func main() {
	cli := &CLI{}
	parser := flags.NewParser(cli, flags.Default)
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		log.AllowDebug = cli.Debug

		if cmd != nil {
			return cmd.Execute(args)
		}
		return nil
	}

	if _, err := parser.Parse(); err != nil {
		flagsErr, isFlagsErr := err.(flags.ErrorType)
		if isFlagsErr && flagsErr == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
