package agent

import (
	"fmt"
	"strings"

	"github.com/Twynzen/dymensisCDA-sub002/types"
)

type text map[types.Locale]string

func (t text) in(locale types.Locale, args ...any) string {
	tpl := types.Pick(t, locale)
	if len(args) == 0 {
		return tpl
	}
	return fmt.Sprintf(tpl, args...)
}

var (
	msgWhatToCreate = text{
		types.LocaleES: "¿Qué quieres crear, un universo o un personaje?",
		types.LocaleEN: "What would you like to create, a universe or a character?",
	}
	msgGenerationFailed = text{
		types.LocaleES: "Lo siento, no pude generar una respuesta. Tus datos están a salvo; inténtalo de nuevo.",
		types.LocaleEN: "Sorry, I could not write a reply. Your data is safe; please try again.",
	}
	msgStreamingFailed = text{
		types.LocaleES: "Se interrumpió la respuesta. Sigue contándome y continuamos.",
		types.LocaleEN: "The reply was interrupted. Keep telling me and we will go on.",
	}
	msgReview = text{
		types.LocaleES: "He preparado tu %s «%s». Revísalo y confirma para guardarlo.",
		types.LocaleEN: "I prepared your %s \"%s\". Review it and confirm to save it.",
	}
	msgReviewWarnings = text{
		types.LocaleES: "Avisos:",
		types.LocaleEN: "Notes:",
	}
	msgConfirmBlocked = text{
		types.LocaleES: "Aún no puedo guardarlo:",
		types.LocaleEN: "I cannot save it yet:",
	}
	msgNoDraft = text{
		types.LocaleES: "Todavía no hay un borrador. Sigue contándome detalles.",
		types.LocaleEN: "There is no draft yet. Keep telling me details.",
	}
	msgPersistenceFailed = text{
		types.LocaleES: "No pude guardar: %s. Puedes intentarlo otra vez.",
		types.LocaleEN: "I could not save: %s. You can try again.",
	}
	msgSaved = text{
		types.LocaleES: "¡Listo! Guardé tu %s «%s».",
		types.LocaleEN: "Done! Your %s \"%s\" is saved.",
	}
	msgUpdated = text{
		types.LocaleES: "Actualicé tu %s «%s».",
		types.LocaleEN: "Your %s \"%s\" is updated.",
	}
	msgAdjust = text{
		types.LocaleES: "Claro, ¿qué quieres cambiar?",
		types.LocaleEN: "Sure, what would you like to change?",
	}
	msgRegenerate = text{
		types.LocaleES: "Descarté el borrador y conservé lo que me contaste. Añade o cambia detalles y lo vuelvo a generar.",
		types.LocaleEN: "I dropped the draft and kept what you told me. Add or change details and I will build it again.",
	}
	msgDiscarded = text{
		types.LocaleES: "Borrador descartado. Empecemos de nuevo.",
		types.LocaleEN: "Draft discarded. Let's start over.",
	}
	msgDraftDropped = text{
		types.LocaleES: "Borrador descartado. Conservo lo que me contaste; dime qué cambiar o usa «Descartar» para empezar de cero.",
		types.LocaleEN: "Draft discarded. I kept what you told me; tell me what to change or use \"Discard\" to start from scratch.",
	}
	msgCancelled = text{
		types.LocaleES: "Creación cancelada.",
		types.LocaleEN: "Creation cancelled.",
	}
	msgUniverseSelected = text{
		types.LocaleES: "Tu personaje vivirá en «%s».",
		types.LocaleEN: "Your character will live in \"%s\".",
	}
	msgUniverseNotFound = text{
		types.LocaleES: "No encontré ese universo.",
		types.LocaleEN: "I could not find that universe.",
	}
	msgAvailableUniverses = text{
		types.LocaleES: "Elige el universo de tu personaje:",
		types.LocaleEN: "Choose your character's universe:",
	}
	msgNoUniverses = text{
		types.LocaleES: "Aún no hay universos guardados; crea uno primero.",
		types.LocaleEN: "There are no saved universes yet; create one first.",
	}
	msgClassifyUniverseImage = text{
		types.LocaleES: "Recibí la imagen. ¿La uso como portada o como lugar?",
		types.LocaleEN: "Got the image. Should I use it as the cover or as a location?",
	}
	msgClassifyCharacterImage = text{
		types.LocaleES: "Recibí la imagen. ¿La uso como avatar?",
		types.LocaleEN: "Got the image. Should I use it as the avatar?",
	}
	msgInvalidImage = text{
		types.LocaleES: "Ese archivo no parece una imagen.",
		types.LocaleEN: "That file does not look like an image.",
	}
	msgImageStored = text{
		types.LocaleES: "Imagen guardada como %s.",
		types.LocaleEN: "Image saved as %s.",
	}
	msgNoPendingImage = text{
		types.LocaleES: "No hay ninguna imagen pendiente.",
		types.LocaleEN: "There is no pending image.",
	}
	msgInvalidSlot = text{
		types.LocaleES: "Esa imagen no se puede usar así en este flujo.",
		types.LocaleEN: "That image cannot be used that way in this flow.",
	}
	msgAttachImage = text{
		types.LocaleES: "Adjunta la imagen y te preguntaré dónde usarla.",
		types.LocaleEN: "Attach the image and I will ask where to use it.",
	}
	msgLastPhase = text{
		types.LocaleES: "Ya estás en la última fase.",
		types.LocaleEN: "You are already in the last phase.",
	}
	msgFirstPhase = text{
		types.LocaleES: "Ya estás en la primera fase.",
		types.LocaleEN: "You are already in the first phase.",
	}
	msgHelp = text{
		types.LocaleES: "Puedes probar con:",
		types.LocaleEN: "You could try:",
	}
	msgHelpIdle = text{
		types.LocaleES: "Dime si quieres crear un universo o un personaje.",
		types.LocaleEN: "Tell me whether you want to create a universe or a character.",
	}

	targetNames = map[types.TargetType]text{
		types.TargetUniverse:  {types.LocaleES: "universo", types.LocaleEN: "universe"},
		types.TargetCharacter: {types.LocaleES: "personaje", types.LocaleEN: "character"},
	}
	slotNames = map[ImageSlot]text{
		SlotCover:    {types.LocaleES: "portada", types.LocaleEN: "cover"},
		SlotLocation: {types.LocaleES: "lugar", types.LocaleEN: "location"},
		SlotAvatar:   {types.LocaleES: "avatar", types.LocaleEN: "avatar"},
	}
)

func bulletList(header string, items []string) string {
	if len(items) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(header)
	for _, it := range items {
		sb.WriteString("\n- ")
		sb.WriteString(it)
	}
	return sb.String()
}
