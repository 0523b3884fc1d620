package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/rlaurindo/presenca-sync/internal/client/models"
	"github.com/rlaurindo/presenca-sync/internal/client/token"
)

func (a *App) statusLine() string {
	s := string(a.currentMode())
	if pending := len(a.store.PendingEntries()); pending > 0 {
		s = fmt.Sprintf("%s, %d pendente(s)", s, pending)
	}
	return "(" + s + ")"
}

func (a *App) Status(ctx context.Context) error {
	printlnFn("Modo:", string(a.currentMode()))
	if a.accountID != 0 {
		printlnFn("Usuário:", a.accountID)
	}
	printlnFn("Pendentes:", len(a.store.PendingEntries()))
	if last := a.store.LastSync(); !last.IsZero() {
		printlnFn("Última sincronização:", last.Format("2006-01-02 15:04:05"))
	} else {
		printlnFn("Última sincronização: nunca")
	}
	return nil
}

func (a *App) Events(ctx context.Context) error {
	snap := a.store.Snapshot()
	if len(snap.Events) == 0 {
		printlnFn("Nenhum evento no cache local")
		return nil
	}
	for _, ev := range snap.Events {
		title := ev.Title
		if title == "" {
			title = ev.Name
		}
		printlnFn(fmt.Sprintf("[%d] %s — %s (%d presença(s))",
			ev.ID, title, ev.Location, a.store.CountAttendanceForEvent(ev.ID)))
	}
	return nil
}

func (a *App) Registrations(ctx context.Context, args []string) error {
	if len(args) == 0 {
		printlnFn("Usage: inscricoes <evento_id>")
		return nil
	}
	eventID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid event id %q", args[0])
	}

	regs := a.store.RegistrationsForEvent(eventID)
	if len(regs) == 0 {
		printlnFn("Nenhuma inscrição para o evento", eventID)
		return nil
	}
	for _, reg := range regs {
		name := fmt.Sprintf("usuario %d", reg.AccountID)
		if acc, err := a.store.FindAccount(reg.AccountID); err == nil {
			name = acc.Name
		}
		mark := " "
		if a.store.HasAttendance(reg.ID) {
			mark = "x"
		}
		printlnFn(fmt.Sprintf("[%s] inscrição %d — %s (%s)", mark, reg.ID, name, reg.Status))
	}
	return nil
}

func (a *App) Checkin(ctx context.Context, args []string) error {
	if len(args) == 0 {
		printlnFn("Usage: checkin <inscricao_id>")
		return nil
	}
	regID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid registration id %q", args[0])
	}

	reg, err := a.store.FindRegistration(regID)
	if err != nil {
		return fmt.Errorf("registration %d: %w", regID, err)
	}

	rec, err := a.manager.RecordAttendance(ctx, reg.ID, reg.EventID, reg.AccountID)
	if err != nil {
		return err
	}

	if rec.SyncStatus == models.SyncSynced {
		printlnFn("Presença registrada:", rec.ID)
	} else {
		printlnFn("Presença registrada localmente:", rec.ID, "(aguardando sincronização)")
	}
	return nil
}

func (a *App) Sync(ctx context.Context) error {
	res := a.manager.ReconcileAll(ctx)
	printlnFn(fmt.Sprintf("Sincronizados %d de %d", res.Synced, res.Total))
	for _, msg := range res.Errors {
		printlnFn(" -", msg)
	}
	return nil
}

func (a *App) Stats(ctx context.Context) error {
	st := a.store.Stats()
	printlnFn("Usuários:", st.Accounts)
	printlnFn("Eventos:", st.Events)
	printlnFn("Inscrições:", st.Registrations)
	printlnFn("Presenças:", st.Attendance)
	printlnFn("Fila de sincronização:", st.Pending)
	return nil
}

// Login captures a bearer token without echoing it and reloads the
// dataset so user-scoped collections get fetched.
func (a *App) Login(ctx context.Context) error {
	tok, err := GetToken(os.Stdout)
	if err != nil {
		// stdin is not a terminal; read a plain line instead.
		tok, err = GetSimpleText(a.reader, "Enter token", os.Stdout)
		if err != nil {
			return err
		}
	}
	if tok == "" {
		printlnFn("Empty token, nothing changed")
		return nil
	}

	a.config.Token = tok
	a.apiClient.SetToken(tok)
	a.accountID = 0
	if claims, err := token.Parse(tok); err == nil {
		a.accountID = claims.AccountID
	}

	a.loader = a.newLoader(tok)
	a.loader.Initialize(ctx)
	return nil
}
