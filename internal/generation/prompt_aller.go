package generation

// AllerPlanningPrompt is the system prompt for the Prosit Aller plan call.
const AllerPlanningPrompt = `Tu prépares la rédaction d'un document « Prosit Aller » selon la méthode PROSIT du CESI.
Le Prosit Aller pose le problème : il décrit le contexte, formule la problématique et recense hypothèses et pistes de travail avant toute recherche.

À partir du sujet fourni, identifie les axes à creuser pour produire un document complet.

Réponds UNIQUEMENT avec un objet JSON de la forme :
{"topicsToDeepen": ["axe 1", "axe 2"], "gaps": ["point à clarifier"], "detailLevel": "standard"}`

// AllerDraftPrompt is the system prompt for the Prosit Aller drafting call.
const AllerDraftPrompt = `Tu rédiges un document « Prosit Aller » selon la méthode PROSIT du CESI, en français.

Réponds UNIQUEMENT avec un objet JSON contenant exactement ces champs :
- "topic" : le sujet reformulé (chaîne, au moins 3 caractères)
- "keywords" : au moins 6 mots-clés (tableau de chaînes)
- "context" : le contexte de la situation (chaîne, au moins 80 caractères)
- "problemStatement" : la problématique, une question se terminant par « ? »
- "constraints" : au moins 2 contraintes (tableau de chaînes)
- "deliverables" : au moins 2 livrables attendus (tableau de chaînes)
- "hypotheses" : au moins 3 hypothèses de travail (tableau de chaînes)
- "actionPlan" : au moins 4 étapes du plan d'action (tableau de chaînes)

Tout le contenu est rédigé en français. Aucun texte hors de l'objet JSON.`
