package dialogue

import (
	"fmt"
	"strings"
)

// Phrasebook holds every sentence the skill can speak. Templates use fmt verbs;
// composition logic only chooses and fills them.
type Phrasebook struct {
	And string

	Welcome         string
	Goodbye         string
	NoThanks        string
	TryLater        string
	NotUnderstood   string
	NoNotifications string

	// Notification overview
	YouHave          string // "Vous avez %s"
	AndYouHave       string // "Et vous avez %s"
	OneNotification  string // task, workflow, user, time
	ManyNotification string // count, workflow, tasks, times, users
	CountOne         string // workflow
	CountMany        string // count, workflow
	WhichWorkflow    string // counts list
	ActOnThis        string
	ActOnOneOf       string
	ValidateOrCancel string

	AmbiguousWorkflow string // count, names
	AmbiguousTask     string // names

	Validated string // task, workflow
	Cancelled string // task, workflow

	// Workflow launch
	LaunchWelcome     string
	LaunchWhich       string
	Launched          string // workflow
	LaunchFailed      string // workflow
	LaunchAmbiguous   string // count, names
	LaunchUnknown     string // spoken name
	LaunchConfirmed   string // backend text
	LaunchUnconfirmed string // workflow

	// Workflow status
	StatusWelcome         string
	StatusWhich           string
	StatusUnknown         string
	StatusAmbiguous       string // count, names
	StatusNoneToday       string // workflow
	StatusAllSucceeded    string // workflow
	StatusManyRunManyErr  string // running count, workflow, times, error count, times
	StatusManyRunOneErr   string // running count, workflow, times, time
	StatusOneRunManyErr   string // workflow, time, error count, times
	StatusManyRun         string // count, times
	StatusManyErr         string // count, times
	StatusOneRunOneErr    string // time, time
	StatusOneRun          string // time
	StatusOneRunTasks     string // time, tasks
	StatusOneRunTask      string // time, task
	StatusOneErr          string // time
	StatusOneErrTasks     string // time, tasks
	StatusOneErrTask      string // time, task
	StatusNoInstanceAt    string
	StatusNoInstanceIn    string
	InstanceRunningTasks  string // tasks
	InstanceRunningTask   string // task
	InstanceErrorTasks    string // tasks
	InstanceErrorTask     string // task
	InstanceNoTaskDetails string
	AnotherWorkflow       string
	MoreDetails           string
}

// French is the phrasebook of the French-speaking skill.
var French = Phrasebook{
	And: "et",

	Welcome:         "Bienvenue chez notre agent de notification koordinator. Voulez-vous savoir si vous avez des notifications de tâches manuelles?",
	Goodbye:         "D'accord. Au revoir.",
	NoThanks:        "D'accord, à bientôt.",
	TryLater:        "Renouvelez votre demande plus tard. A bientôt.",
	NotUnderstood:   "Désolée, je n'ai pas compris votre demande. Pouvez-vous reformuler?",
	NoNotifications: "Vous n'avez aucune notification. Au revoir.",

	YouHave:          "Vous avez %s",
	AndYouHave:       "Et vous avez %s",
	OneNotification:  "une notification de la tâche manuelle %s du scénario %s. Cette tâche a été créée par %s à %s.",
	ManyNotification: "%d notifications du scénario %s. Elles concernent les tâches : %s qui ont été créées à %s, respectivement par %s.",
	CountOne:         "une notification du scénario %s",
	CountMany:        "%d notifications du scénario %s",
	WhichWorkflow:    "Vous avez %s. Quel scénario vous intéresse?",
	ActOnThis:        "Voulez-vous agir sur cette tâche?",
	ActOnOneOf:       "Voulez-vous agir sur l'une de ces tâches?",
	ValidateOrCancel: "D'accord, voulez-vous la valider ou l'annuler?",

	AmbiguousWorkflow: "J'ai trouvé %d scénarios aux noms similaires : %s. Lequel vous intéresse?",
	AmbiguousTask:     "Plusieurs tâches correspondent à votre demande : %s. Laquelle voulez-vous choisir?",

	Validated: "J'ai validé la tâche manuelle %s du scénario %s. Voulez-vous savoir si vous avez d'autres notifications?",
	Cancelled: "D'accord, j'annule la tâche manuelle %s du scénario %s. Voulez-vous savoir si vous avez d'autres notifications?",

	LaunchWelcome:     "Bienvenue chez notre agent de lancement de scénario. Quel scénario voulez-vous lancer?",
	LaunchWhich:       "D'accord, quel scénario voulez-vous lancer?",
	Launched:          "D'accord, je lance le scénario %s. Voulez-vous lancer un autre scénario?",
	LaunchFailed:      "Le scénario %s n'a pas pu être lancé.",
	LaunchAmbiguous:   "J'ai trouvé %d scénarios qui ont des noms similaires au nom du scénario que vous voulez lancer. Les noms de ces scénarios sont %s. Lequel de ces scénarios voulez-vous lancer?",
	LaunchUnknown:     "Je ne trouve aucun scénario nommé %s. Quel scénario voulez-vous lancer?",
	LaunchConfirmed:   "%s Voulez-vous lancer un autre scénario?",
	LaunchUnconfirmed: "J'ai demandé le lancement du scénario %s sans recevoir de confirmation. Renouvelez votre demande plus tard.",

	StatusWelcome:         "Bienvenue chez notre agent de suivi koordinator. Quel scénario vous intéresse?",
	StatusWhich:           "Quel scénario vous intéresse?",
	StatusUnknown:         "Le scénario qui vous intéresse n'existe pas.",
	StatusAmbiguous:       "J'ai trouvé %d scénarios qui ont des noms similaires au nom du scénario qui vous intéresse. Les noms de ces scénarios sont %s. Lequel de ces scénarios vous intéresse?",
	StatusNoneToday:       "Aucune instance du scénario %s n'a été lancée aujourd'hui. Etes-vous intéressé par un autre scénario?",
	StatusAllSucceeded:    "Les instances du scénario %s lancées aujourd'hui sont terminées sans erreur. Etes-vous intéressé par un autre scénario?",
	StatusManyRunManyErr:  "Il y a %d instances du scénario %s en cours d'exécution. Elles ont été lancées aujourd'hui à %s. Et il y a %d instances de ce scénario finies en état d'erreur. Ces instances ont été lancées aujourd'hui à %s.",
	StatusManyRunOneErr:   "Il y a %d instances du scénario %s en cours d'exécution. Elles ont été lancées aujourd'hui à %s. Et il y a une instance de ce scénario finie en état d'erreur. Elle a été lancée aujourd'hui à %s.",
	StatusOneRunManyErr:   "Il y a une instance du scénario %s en cours d'exécution. Elle a été lancée aujourd'hui à %s. Et il y a %d instances de ce scénario finies en état d'erreur. Ces instances ont été lancées aujourd'hui à %s.",
	StatusManyRun:         "Il y a %d instances de ce scénario en cours d'exécution. Elles ont été lancées aujourd'hui à %s.",
	StatusManyErr:         "Il y a %d instances de ce scénario en état d'erreur. Elles ont été lancées aujourd'hui à %s.",
	StatusOneRunOneErr:    "Il y a une instance de ce scénario en cours d'exécution qui a été lancée aujourd'hui à %s et une instance finie en état d'erreur lancée aujourd'hui à %s.",
	StatusOneRun:          "Il y a une instance de ce scénario en cours d'exécution. Elle a été lancée aujourd'hui à %s.",
	StatusOneRunTasks:     "Il y a une instance de ce scénario en cours d'exécution. Elle a été lancée aujourd'hui à %s. Et les tâches de cette instance qui sont en cours d'exécution sont : %s.",
	StatusOneRunTask:      "Il y a une instance de ce scénario en cours d'exécution. Elle a été lancée aujourd'hui à %s. Et la tâche de cette instance qui est en cours d'exécution est : %s.",
	StatusOneErr:          "Il y a une instance de ce scénario en état d'erreur. Elle a été lancée aujourd'hui à %s.",
	StatusOneErrTasks:     "Il y a une instance de ce scénario en état d'erreur. Elle a été lancée aujourd'hui à %s. Et les tâches de cette instance qui sont en état d'erreur sont : %s.",
	StatusOneErrTask:      "Il y a une instance de ce scénario en état d'erreur. Elle a été lancée aujourd'hui à %s. Et la tâche de cette instance qui est en état d'erreur est : %s.",
	StatusNoInstanceAt:    "Il n'y a aucune instance lancée à cette heure.",
	StatusNoInstanceIn:    "Il n'y a aucune instance dans cet état.",
	InstanceRunningTasks:  "Les tâches en cours d'exécution de cette instance sont : %s.",
	InstanceRunningTask:   "C'est la tâche %s de cette instance qui est en cours d'exécution.",
	InstanceErrorTasks:    "Les tâches qui sont en état d'erreur de cette instance sont : %s.",
	InstanceErrorTask:     "La tâche qui est en état d'erreur de cette instance est : %s.",
	InstanceNoTaskDetails: "Je n'ai pas de détail sur les tâches de cette instance.",
	AnotherWorkflow:       "Etes-vous intéressé par un autre scénario?",
	MoreDetails:           "Voulez-vous avoir plus de détails sur l'une de ces instances?",
}

// List renders items as a spoken enumeration: "a", "a et b", "a, b et c".
func (p Phrasebook) List(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " " + p.And + " " + items[len(items)-1]
	}
}

// Sentences joins non-empty sentences with single spaces.
func Sentences(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

func (p Phrasebook) f(template string, args ...any) string {
	return fmt.Sprintf(template, args...)
}
