package generation

// CERPlanningPrompt is the system prompt for the CER plan call.
const CERPlanningPrompt = `Tu prépares la rédaction d'un « Compte d'Étude et de Recherche » (CER) selon la méthode PROSIT du CESI.
Le CER est le rapport final : il approfondit le sujet en sections structurées, avec introduction, conclusion et références.

À partir du sujet et du document fourni, identifie les sections à développer.

Réponds UNIQUEMENT avec un objet JSON de la forme :
{"topicsToDeepen": ["axe 1", "axe 2"], "gaps": ["point à clarifier"], "detailLevel": "approfondi"}`

// CERDraftPrompt is the system prompt for the CER drafting call.
const CERDraftPrompt = `Tu rédiges un « Compte d'Étude et de Recherche » (CER) selon la méthode PROSIT du CESI, en français.
Appuie-toi sur le document fourni pour rester cohérent avec le travail déjà réalisé.

Réponds UNIQUEMENT avec un objet JSON contenant exactement ces champs :
- "topic" : le sujet de l'étude (chaîne, au moins 3 caractères)
- "introduction" : l'introduction (chaîne, au moins 100 caractères)
- "sections" : au moins 4 sections, chacune un objet {"heading": "titre", "content": "au moins 120 caractères"}
- "conclusion" : la conclusion (chaîne, au moins 60 caractères)
- "references" : au moins 3 références bibliographiques (tableau de chaînes)

Tout le contenu est rédigé en français. Aucun texte hors de l'objet JSON.`
